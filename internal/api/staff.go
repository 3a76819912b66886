package api

import (
	"fmt"
	"net/http"
	"strconv"

	"mesa/internal/auth"
	"mesa/internal/domain"
	"mesa/internal/menu"
	"mesa/internal/tables"
)

// actor names the staff member behind r for audit entries.
func actor(r *http.Request) string {
	return domain.ActorOf(auth.PrincipalFromContext(r.Context()), domain.ActorSystem)
}

// Kitchen

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Orders.List())
}

func (s *Server) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req orderStatusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	order, err := s.deps.Orders.SetStatus(r.Context(), actor(r), id, domain.OrderStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// Tables

func (s *Server) handleListTables(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tables.List())
}

func (s *Server) handleCreateTable(w http.ResponseWriter, r *http.Request) {
	var req createTableRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	table, err := s.deps.Tables.Register(r.Context(), actor(r), tables.RegisterRequest{
		Code:      req.Code,
		Temporary: req.IsTemporary,
		Note:      req.Note,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, table)
}

func (s *Server) handleTableStatus(w http.ResponseWriter, r *http.Request) {
	var req tableStatusRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	table, err := s.deps.Tables.SetStatus(r.Context(), actor(r), pathCode(r), domain.TableStatus(req.Status))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleReissueTable(w http.ResponseWriter, r *http.Request) {
	table, err := s.deps.Tables.Reissue(r.Context(), actor(r), pathCode(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

func (s *Server) handleDeleteTable(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Tables.Remove(r.Context(), actor(r), pathCode(r)); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Menu

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Menu.Products())
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	product, err := s.deps.Menu.CreateProduct(r.Context(), actor(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req productPatchRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	product, err := s.deps.Menu.UpdateProduct(r.Context(), actor(r), id, req.patch())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Menu.DeleteProduct(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Menu.Categories())
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	category, err := s.deps.Menu.CreateCategory(r.Context(), actor(r), req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	category, err := s.deps.Menu.UpdateCategory(r.Context(), actor(r), id, req.input())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Menu.DeleteCategory(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Administration

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, fmt.Errorf("%w: limit must be a non-negative integer", domain.ErrMalformed))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.deps.Audit.List(limit))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Menu.Export())
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req menu.Import
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := s.deps.Menu.Import(r.Context(), actor(r), req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
