// Package orders records customer orders and their kitchen workflow.
package orders

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"mesa/internal/audit"
	"mesa/internal/domain"
	"mesa/internal/fanout"
	"mesa/internal/metrics"
	"mesa/internal/store"
)

// Publisher delivers events to subscriber groups.
type Publisher interface {
	Publish(group, event string, payload any) int
}

// Auditor records state-changing actions.
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
}

// CreateRequest is a customer order as submitted. Amounts are taken as given.
type CreateRequest struct {
	TableCode  string
	Items      []domain.OrderItem
	Amounts    domain.Amounts
	ClientMeta map[string]any
}

// Ledger owns the orders collection.
type Ledger struct {
	store     *store.Store
	publisher Publisher
	audit     Auditor
	policy    TransitionPolicy
	now       func() time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPolicy replaces the status transition policy.
func WithPolicy(p TransitionPolicy) Option {
	return func(l *Ledger) {
		l.policy = p
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// NewLedger creates a ledger over s.
func NewLedger(s *store.Store, publisher Publisher, audit Auditor, opts ...Option) *Ledger {
	l := &Ledger{
		store:     s,
		publisher: publisher,
		audit:     audit,
		policy:    Permissive,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Create stores a pending order for an active, unexpired table and notifies
// the kitchen and the table.
func (l *Ledger) Create(ctx context.Context, req CreateRequest) (*domain.Order, error) {
	if err := validateCreate(req); err != nil {
		metrics.OrderOperationsTotal.WithLabelValues("create", "error").Inc()
		return nil, err
	}

	var order domain.Order
	err := l.store.Update(func(d *store.Data) error {
		now := l.now().UTC()

		i := d.TableIndex(req.TableCode)
		if i < 0 {
			return fmt.Errorf("%w: table %s not found", domain.ErrInvalidTable, req.TableCode)
		}
		table := d.Tables[i]
		if !table.UsableAt(now) {
			return fmt.Errorf("%w: table %s is not accepting orders", domain.ErrInvalidTable, table.Code)
		}

		order = domain.Order{
			ID:         l.store.NextID(),
			TableCode:  table.Code,
			TableID:    table.ID,
			Items:      append([]domain.OrderItem(nil), req.Items...),
			Subtotal:   req.Amounts.Subtotal,
			Tax:        req.Amounts.Tax,
			Total:      req.Amounts.Total,
			Status:     domain.OrderPending,
			CreatedAt:  now,
			UpdatedAt:  now,
			ClientMeta: req.ClientMeta,
		}
		d.Orders = append(d.Orders, order)
		return nil
	})
	if err != nil {
		metrics.OrderOperationsTotal.WithLabelValues("create", "error").Inc()
		return nil, err
	}

	l.audit.Record(ctx, domain.ActorCustomer, audit.ActionOrderCreate,
		fmt.Sprintf("Order #%d - Table %s - $%.2f", order.ID, order.TableCode, order.Total))

	l.publisher.Publish(fanout.GroupKitchen, fanout.EventOrderNew, order)
	l.publisher.Publish(fanout.TableGroup(order.TableCode), fanout.EventOrderConfirmed,
		domain.StatusChange{OrderID: order.ID, Status: order.Status})

	metrics.OrderOperationsTotal.WithLabelValues("create", "success").Inc()
	log.Info().
		Int64("order_id", order.ID).
		Str("table_code", order.TableCode).
		Int("items", len(order.Items)).
		Float64("total", order.Total).
		Msg("Order created")
	return &order, nil
}

func validateCreate(req CreateRequest) error {
	if req.TableCode == "" {
		return fmt.Errorf("%w: table code required", domain.ErrMalformed)
	}
	if len(req.Items) == 0 {
		return fmt.Errorf("%w: order has no items", domain.ErrMalformed)
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("%w: item %d has quantity %d", domain.ErrMalformed, i, item.Quantity)
		}
	}
	a := req.Amounts
	if a.Subtotal < 0 || a.Tax < 0 || a.Total < 0 {
		return fmt.Errorf("%w: amounts must not be negative", domain.ErrMalformed)
	}
	return nil
}

// SetStatus moves the order with id to status and notifies its table and the
// kitchen.
func (l *Ledger) SetStatus(ctx context.Context, actor string, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if !status.Valid() {
		metrics.OrderOperationsTotal.WithLabelValues("set_status", "error").Inc()
		return nil, fmt.Errorf("%w: unknown order status %q", domain.ErrMalformed, status)
	}

	var order domain.Order
	err := l.store.Update(func(d *store.Data) error {
		i := d.OrderIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
		}
		if err := l.policy(d.Orders[i].Status, status); err != nil {
			return err
		}
		d.Orders[i].Status = status
		d.Orders[i].UpdatedAt = l.now().UTC()
		order = d.Orders[i]
		return nil
	})
	if err != nil {
		metrics.OrderOperationsTotal.WithLabelValues("set_status", "error").Inc()
		return nil, err
	}

	l.audit.Record(ctx, actor, audit.ActionOrderStatus, fmt.Sprintf("Order #%d -> %s", id, status))

	change := domain.StatusChange{OrderID: order.ID, Status: order.Status}
	l.publisher.Publish(fanout.TableGroup(order.TableCode), fanout.EventOrderStatus, change)
	l.publisher.Publish(fanout.GroupKitchen, fanout.EventOrderUpdated, change)

	metrics.OrderOperationsTotal.WithLabelValues("set_status", "success").Inc()
	log.Debug().Int64("order_id", id).Str("status", string(status)).Msg("Order status changed")
	return &order, nil
}

// Get returns the order with id.
func (l *Ledger) Get(id int64) (*domain.Order, error) {
	var (
		order domain.Order
		found bool
	)
	l.store.Read(func(d *store.Data) {
		if i := d.OrderIndex(id); i >= 0 {
			order = d.Orders[i]
			found = true
		}
	})
	if !found {
		return nil, fmt.Errorf("%w: order %d", domain.ErrNotFound, id)
	}
	return &order, nil
}

// List returns every order, newest first.
func (l *Ledger) List() []domain.Order {
	return l.filter(func(*domain.Order) bool { return true })
}

// ListByTable returns the orders placed from the table with code, newest first.
func (l *Ledger) ListByTable(code string) []domain.Order {
	return l.filter(func(o *domain.Order) bool { return o.TableCode == code })
}

func (l *Ledger) filter(keep func(*domain.Order) bool) []domain.Order {
	out := []domain.Order{}
	l.store.Read(func(d *store.Data) {
		for i := range d.Orders {
			if keep(&d.Orders[i]) {
				out = append(out, d.Orders[i])
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
