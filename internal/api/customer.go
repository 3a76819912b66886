package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"mesa/internal/domain"
	"mesa/internal/orders"
)

// TableTokenHeader carries the table token on customer reads.
const TableTokenHeader = "X-Table-Token"

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	StoreVersion  uint64 `json:"store_version"`
	StoreDegraded bool   `json:"store_degraded"`
	StoreError    string `json:"store_error,omitempty"`
	AuditDegraded bool   `json:"audit_degraded"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:        "healthy",
		Service:       "mesa",
		StoreVersion:  s.deps.Store.Version(),
		StoreDegraded: s.deps.Store.Degraded(),
		AuditDegraded: s.deps.Audit.Degraded(),
	}
	if err := s.deps.Store.LastFlushError(); err != nil {
		resp.StoreError = err.Error()
	}
	if resp.StoreDegraded || resp.AuditDegraded {
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePublicMenu(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Menu.Public())
}

type validateQRResponse struct {
	Valid   bool                `json:"valid"`
	Table   *domain.PublicTable `json:"table,omitempty"`
	Error   string              `json:"error,omitempty"`
	Message string              `json:"message,omitempty"`
}

func (s *Server) handleValidateQR(w http.ResponseWriter, r *http.Request) {
	var req validateQRRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	table, err := s.deps.Tables.Verify(req.Payload)
	if err != nil {
		status, code := statusFor(err)
		writeJSON(w, status, validateQRResponse{Valid: false, Error: code, Message: err.Error()})
		return
	}

	pub := table.Public()
	writeJSON(w, http.StatusOK, validateQRResponse{Valid: true, Table: &pub})
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.TableCode))
	if req.Token != "" {
		table, err := s.deps.Tables.Verify(req.Token)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if code == "" {
			code = table.Code
		} else if code != table.Code {
			writeError(w, r, fmt.Errorf("%w: token was issued for another table", domain.ErrInvalidTable))
			return
		}
	}

	order, err := s.deps.Orders.Create(r.Context(), orders.CreateRequest{
		TableCode: code,
		Items:     req.items(),
		Amounts: domain.Amounts{
			Subtotal: req.Subtotal,
			Tax:      req.Tax,
			Total:    req.Total,
		},
		ClientMeta: req.ClientMeta,
	})
	if err != nil {
		log.Debug().Err(err).Str("table_code", code).Msg("Order rejected")
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, order)
}

// handleTableOrders lists the orders of one table for a customer holding its
// current token.
func (s *Server) handleTableOrders(w http.ResponseWriter, r *http.Request) {
	code := pathCode(r)

	tok := r.Header.Get(TableTokenHeader)
	if tok == "" {
		tok = r.URL.Query().Get("token")
	}
	if tok == "" {
		writeError(w, r, fmt.Errorf("%w: table token required", domain.ErrMalformed))
		return
	}

	table, err := s.deps.Tables.Verify(tok)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if table.Code != code {
		writeError(w, r, fmt.Errorf("%w: token was issued for another table", domain.ErrInvalidTable))
		return
	}

	writeJSON(w, http.StatusOK, s.deps.Orders.ListByTable(code))
}
