// Package tables manages table lifecycle and token issuance.
package tables

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"mesa/internal/audit"
	"mesa/internal/domain"
	"mesa/internal/metrics"
	"mesa/internal/qrcode"
	"mesa/internal/store"
	"mesa/internal/token"
)

const maxCodeAttempts = 1000

// Renderer stores a scannable image of a token under a key.
type Renderer interface {
	Render(key, content string) (string, error)
	Release(key string) error
}

// Auditor records state-changing actions.
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
}

// TransitionPolicy decides whether a table may move between statuses.
type TransitionPolicy func(from, to domain.TableStatus) error

// Permissive allows every transition between known statuses.
func Permissive(_, _ domain.TableStatus) error {
	return nil
}

// RegisterRequest describes a new table. An empty Code is generated.
type RegisterRequest struct {
	Code      string
	Temporary bool
	Note      string
}

// Registry owns the tables collection.
type Registry struct {
	store    *store.Store
	codec    *token.Codec
	renderer Renderer
	audit    Auditor
	policy   TransitionPolicy
	now      func() time.Time
	random   io.Reader
}

// Option configures a Registry.
type Option func(*Registry)

// WithRenderer renders a QR image for every issued token.
func WithRenderer(r Renderer) Option {
	return func(reg *Registry) {
		reg.renderer = r
	}
}

// WithPolicy replaces the status transition policy.
func WithPolicy(p TransitionPolicy) Option {
	return func(reg *Registry) {
		reg.policy = p
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(reg *Registry) {
		reg.now = now
	}
}

// NewRegistry creates a registry over s.
func NewRegistry(s *store.Store, codec *token.Codec, audit Auditor, opts ...Option) *Registry {
	r := &Registry{
		store:  s,
		codec:  codec,
		audit:  audit,
		policy: Permissive,
		now:    time.Now,
		random: defaultRandom,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a table, mints its token and renders its image.
func (r *Registry) Register(ctx context.Context, actor string, req RegisterRequest) (*domain.Table, error) {
	var requested string
	if req.Code != "" {
		code, err := NormalizeCode(req.Code)
		if err != nil {
			metrics.TableOperationsTotal.WithLabelValues("register", "error").Inc()
			return nil, err
		}
		requested = code
	}

	policy := token.Permanent
	if req.Temporary {
		policy = token.Temporary
	}

	var table domain.Table
	err := r.store.Update(func(d *store.Data) error {
		code := requested
		if code == "" {
			generated, err := r.uniqueCode(d)
			if err != nil {
				return err
			}
			code = generated
		} else if d.TableIndex(code) >= 0 {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateCode, code)
		}

		id := r.store.NextID()
		tok, claims, err := r.codec.Issue(code, id, policy)
		if err != nil {
			return err
		}

		table = domain.Table{
			ID:        id,
			Code:      code,
			Status:    domain.TableActive,
			Note:      req.Note,
			CreatedAt: r.now().UTC(),
			Token:     tok,
		}
		if req.Temporary {
			expires := claims.ExpiresAt
			table.ExpiresAt = &expires
		}

		d.Tables = append(d.Tables, table)
		return nil
	})
	if err != nil {
		metrics.TableOperationsTotal.WithLabelValues("register", "error").Inc()
		return nil, err
	}

	r.renderImage(&table)

	detail := "Table created: " + table.Code
	if table.ExpiresAt != nil {
		detail += fmt.Sprintf(" (expires %s)", table.ExpiresAt.Format(time.RFC3339))
	}
	r.audit.Record(ctx, actor, audit.ActionTableCreate, detail)
	metrics.TableOperationsTotal.WithLabelValues("register", "success").Inc()

	log.Info().
		Str("table_code", table.Code).
		Int64("table_id", table.ID).
		Bool("temporary", req.Temporary).
		Msg("Table registered")
	return &table, nil
}

func (r *Registry) uniqueCode(d *store.Data) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := generateCode(r.random)
		if err != nil {
			return "", err
		}
		if d.TableIndex(code) < 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free table code after %d attempts", maxCodeAttempts)
}

// renderImage stores the image of t's token and records its path. Failures
// leave the table usable without an image.
func (r *Registry) renderImage(t *domain.Table) {
	if r.renderer == nil {
		return
	}

	path, err := r.renderer.Render(qrcode.Key(t.Code), t.Token)
	if err != nil {
		metrics.QRRenderErrorsTotal.Inc()
		log.Error().Err(err).Str("table_code", t.Code).Msg("Failed to render QR image")
		return
	}

	err = r.store.Update(func(d *store.Data) error {
		i := d.TableIndex(t.Code)
		if i < 0 || d.Tables[i].ID != t.ID || d.Tables[i].Token != t.Token {
			return domain.ErrNotFound
		}
		d.Tables[i].QRPath = path
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("table_code", t.Code).Msg("Table changed before image path was stored")
		return
	}
	t.QRPath = path
}

// SetStatus changes the status of the table with code.
func (r *Registry) SetStatus(ctx context.Context, actor, code string, status domain.TableStatus) (*domain.Table, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown table status %q", domain.ErrMalformed, status)
	}

	var table domain.Table
	err := r.store.Update(func(d *store.Data) error {
		i := d.TableIndex(code)
		if i < 0 {
			return fmt.Errorf("%w: table %s", domain.ErrNotFound, code)
		}
		if err := r.policy(d.Tables[i].Status, status); err != nil {
			return err
		}
		d.Tables[i].Status = status
		table = d.Tables[i]
		return nil
	})
	if err != nil {
		metrics.TableOperationsTotal.WithLabelValues("set_status", "error").Inc()
		return nil, err
	}

	r.audit.Record(ctx, actor, audit.ActionTableStatus, fmt.Sprintf("Table %s -> %s", code, status))
	metrics.TableOperationsTotal.WithLabelValues("set_status", "success").Inc()
	log.Debug().Str("table_code", code).Str("status", string(status)).Msg("Table status changed")
	return &table, nil
}

// Remove deletes the table with code and releases its image.
func (r *Registry) Remove(ctx context.Context, actor, code string) error {
	err := r.store.Update(func(d *store.Data) error {
		i := d.TableIndex(code)
		if i < 0 {
			return fmt.Errorf("%w: table %s", domain.ErrNotFound, code)
		}
		d.Tables = append(d.Tables[:i], d.Tables[i+1:]...)
		return nil
	})
	if err != nil {
		metrics.TableOperationsTotal.WithLabelValues("remove", "error").Inc()
		return err
	}

	if r.renderer != nil {
		if err := r.renderer.Release(qrcode.Key(code)); err != nil {
			log.Warn().Err(err).Str("table_code", code).Msg("Failed to release QR image")
		}
	}

	r.audit.Record(ctx, actor, audit.ActionTableDelete, "Table deleted: "+code)
	metrics.TableOperationsTotal.WithLabelValues("remove", "success").Inc()
	log.Info().Str("table_code", code).Msg("Table removed")
	return nil
}

// Reissue replaces the token of the table with code. Earlier tokens stop
// verifying. A temporary table keeps its original expiry.
func (r *Registry) Reissue(ctx context.Context, actor, code string) (*domain.Table, error) {
	var table domain.Table
	err := r.store.Update(func(d *store.Data) error {
		i := d.TableIndex(code)
		if i < 0 {
			return fmt.Errorf("%w: table %s", domain.ErrNotFound, code)
		}

		policy := token.Permanent
		if d.Tables[i].Temporary() {
			policy = token.Temporary
		}
		tok, _, err := r.codec.Issue(d.Tables[i].Code, d.Tables[i].ID, policy)
		if err != nil {
			return err
		}
		d.Tables[i].Token = tok
		table = d.Tables[i]
		return nil
	})
	if err != nil {
		metrics.TableOperationsTotal.WithLabelValues("reissue", "error").Inc()
		return nil, err
	}

	r.renderImage(&table)

	r.audit.Record(ctx, actor, audit.ActionTableReissue, "Table token reissued: "+code)
	metrics.TableOperationsTotal.WithLabelValues("reissue", "success").Inc()
	log.Info().Str("table_code", code).Msg("Table token reissued")
	return &table, nil
}

// Resolve returns the table with code.
func (r *Registry) Resolve(code string) (*domain.Table, error) {
	var (
		table domain.Table
		found bool
	)
	r.store.Read(func(d *store.Data) {
		if i := d.TableIndex(code); i >= 0 {
			table = d.Tables[i]
			found = true
		}
	})
	if !found {
		return nil, fmt.Errorf("%w: table %s", domain.ErrNotFound, code)
	}
	return &table, nil
}

// List returns every table in registration order.
func (r *Registry) List() []domain.Table {
	var out []domain.Table
	r.store.Read(func(d *store.Data) {
		out = make([]domain.Table, len(d.Tables))
		copy(out, d.Tables)
	})
	return out
}

// Verify checks tok and that the table it names can take orders now.
func (r *Registry) Verify(tok string) (*domain.Table, error) {
	table, err := r.verify(tok)
	if err != nil {
		metrics.TokenVerificationsTotal.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}
	metrics.TokenVerificationsTotal.WithLabelValues("valid").Inc()
	return table, nil
}

func (r *Registry) verify(tok string) (*domain.Table, error) {
	claims, err := r.codec.Verify(tok)
	if err != nil {
		return nil, err
	}

	table, err := r.Resolve(claims.TableCode)
	if err != nil {
		return nil, err
	}
	if table.ID != claims.TableID {
		return nil, fmt.Errorf("%w: table %s was re-registered", domain.ErrInvalidTable, table.Code)
	}
	if subtle.ConstantTimeCompare([]byte(table.Token), []byte(tok)) != 1 {
		return nil, fmt.Errorf("%w: token for table %s was superseded", domain.ErrInvalidTable, table.Code)
	}
	if !table.UsableAt(r.now()) {
		return nil, fmt.Errorf("%w: table %s is %s", domain.ErrInvalidTable, table.Code, tableState(table, r.now()))
	}
	return table, nil
}

func tableState(t *domain.Table, now time.Time) string {
	if t.ExpiredAt(now) {
		return "expired"
	}
	return string(t.Status)
}

func resultLabel(err error) string {
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "error"
}
