// Package menu manages products and categories.
package menu

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"mesa/internal/audit"
	"mesa/internal/domain"
	"mesa/internal/fanout"
	"mesa/internal/store"
)

// Category defaults applied when a field is left empty.
const (
	DefaultCategoryIcon  = "fa-tag"
	DefaultCategoryColor = "bg-gray-500"
)

// Broadcaster delivers events to every connection.
type Broadcaster interface {
	Broadcast(event string, payload any) int
}

// Auditor records state-changing actions.
type Auditor interface {
	Record(ctx context.Context, actor, action, details string)
}

// ProductInput describes a new product. A nil Available means true.
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	CategoryID  int64
	Image       string
	Available   *bool
	Options     []domain.ProductOption
}

// ProductPatch changes the fields that are set.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	CategoryID  *int64
	Image       *string
	Available   *bool
	Options     []domain.ProductOption
}

// CategoryInput describes a new category or the fields of an update. Empty
// fields keep their current or default values.
type CategoryInput struct {
	Name  string
	Icon  string
	Color string
}

// Export is a snapshot of the menu and tables.
type Export struct {
	Products   []domain.Product  `json:"products"`
	Categories []domain.Category `json:"categories"`
	Tables     []domain.Table    `json:"tables"`
	ExportedAt time.Time         `json:"exportedAt"`
}

// Import replaces the collections that are non-nil.
type Import struct {
	Products   []domain.Product  `json:"products,omitempty"`
	Categories []domain.Category `json:"categories,omitempty"`
}

// PublicMenu is what customers see.
type PublicMenu struct {
	Products   []domain.Product     `json:"products"`
	Categories []domain.Category    `json:"categories"`
	Tables     []domain.PublicTable `json:"tables"`
}

// Catalog owns the products and categories collections.
type Catalog struct {
	store       *store.Store
	broadcaster Broadcaster
	audit       Auditor
	now         func() time.Time
}

// NewCatalog creates a catalog over s.
func NewCatalog(s *store.Store, broadcaster Broadcaster, audit Auditor) *Catalog {
	return &Catalog{
		store:       s,
		broadcaster: broadcaster,
		audit:       audit,
		now:         time.Now,
	}
}

// Seed installs the default menu when no products or categories exist.
func (c *Catalog) Seed() error {
	seeded := false
	err := c.store.Update(func(d *store.Data) error {
		if len(d.Products) > 0 || len(d.Categories) > 0 {
			return nil
		}
		d.Products = DefaultProducts()
		d.Categories = DefaultCategories()
		seeded = true
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to seed menu: %w", err)
	}
	if seeded {
		log.Info().Msg("Seeded default menu")
	}
	return nil
}

// Products returns every product.
func (c *Catalog) Products() []domain.Product {
	var out []domain.Product
	c.store.Read(func(d *store.Data) {
		out = append([]domain.Product{}, d.Products...)
	})
	return out
}

// Categories returns every category.
func (c *Catalog) Categories() []domain.Category {
	var out []domain.Category
	c.store.Read(func(d *store.Data) {
		out = append([]domain.Category{}, d.Categories...)
	})
	return out
}

// CreateProduct adds a product and announces it.
func (c *Catalog) CreateProduct(ctx context.Context, actor string, in ProductInput) (*domain.Product, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: product name required", domain.ErrMalformed)
	}
	if in.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrMalformed)
	}

	product := domain.Product{
		ID:          c.store.NextID(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		CategoryID:  in.CategoryID,
		Image:       in.Image,
		Available:   in.Available == nil || *in.Available,
		Options:     in.Options,
	}
	if product.Options == nil {
		product.Options = []domain.ProductOption{}
	}

	if err := c.store.Update(func(d *store.Data) error {
		d.Products = append(d.Products, product)
		return nil
	}); err != nil {
		return nil, err
	}

	c.audit.Record(ctx, actor, audit.ActionProductCreate, "Product created: "+product.Name)
	c.broadcaster.Broadcast(fanout.EventProductUpdated, product)
	return &product, nil
}

// UpdateProduct applies patch to the product with id and announces it.
func (c *Catalog) UpdateProduct(ctx context.Context, actor string, id int64, patch ProductPatch) (*domain.Product, error) {
	if patch.Price != nil && *patch.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", domain.ErrMalformed)
	}
	if patch.Name != nil && *patch.Name == "" {
		return nil, fmt.Errorf("%w: product name required", domain.ErrMalformed)
	}

	var product domain.Product
	err := c.store.Update(func(d *store.Data) error {
		i := d.ProductIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
		}
		p := &d.Products[i]
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Description != nil {
			p.Description = *patch.Description
		}
		if patch.Price != nil {
			p.Price = *patch.Price
		}
		if patch.CategoryID != nil {
			p.CategoryID = *patch.CategoryID
		}
		if patch.Image != nil {
			p.Image = *patch.Image
		}
		if patch.Available != nil {
			p.Available = *patch.Available
		}
		if patch.Options != nil {
			p.Options = patch.Options
		}
		product = *p
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.audit.Record(ctx, actor, audit.ActionProductUpdate, "Product updated: "+product.Name)
	c.broadcaster.Broadcast(fanout.EventProductUpdated, product)
	return &product, nil
}

// DeleteProduct removes the product with id and announces it.
func (c *Catalog) DeleteProduct(ctx context.Context, actor string, id int64) error {
	var name string
	err := c.store.Update(func(d *store.Data) error {
		i := d.ProductIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
		}
		name = d.Products[i].Name
		d.Products = append(d.Products[:i], d.Products[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	c.audit.Record(ctx, actor, audit.ActionProductDelete, "Product deleted: "+name)
	c.broadcaster.Broadcast(fanout.EventProductDeleted, map[string]int64{"id": id})
	return nil
}

// CreateCategory adds a category.
func (c *Catalog) CreateCategory(ctx context.Context, actor string, in CategoryInput) (*domain.Category, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("%w: category name required", domain.ErrMalformed)
	}

	category := domain.Category{
		ID:    c.store.NextID(),
		Name:  in.Name,
		Icon:  in.Icon,
		Color: in.Color,
	}
	if category.Icon == "" {
		category.Icon = DefaultCategoryIcon
	}
	if category.Color == "" {
		category.Color = DefaultCategoryColor
	}

	if err := c.store.Update(func(d *store.Data) error {
		d.Categories = append(d.Categories, category)
		return nil
	}); err != nil {
		return nil, err
	}

	c.audit.Record(ctx, actor, audit.ActionCategoryCreate, "Category created: "+category.Name)
	return &category, nil
}

// UpdateCategory changes the non-empty fields of the category with id.
func (c *Catalog) UpdateCategory(ctx context.Context, actor string, id int64, in CategoryInput) (*domain.Category, error) {
	var category domain.Category
	err := c.store.Update(func(d *store.Data) error {
		i := d.CategoryIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
		}
		cat := &d.Categories[i]
		if in.Name != "" {
			cat.Name = in.Name
		}
		if in.Icon != "" {
			cat.Icon = in.Icon
		}
		if in.Color != "" {
			cat.Color = in.Color
		}
		category = *cat
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.audit.Record(ctx, actor, audit.ActionCategoryUpdate, "Category updated: "+category.Name)
	return &category, nil
}

// DeleteCategory removes the category with id. Products keep their
// category_id.
func (c *Catalog) DeleteCategory(ctx context.Context, actor string, id int64) error {
	var name string
	err := c.store.Update(func(d *store.Data) error {
		i := d.CategoryIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: category %d", domain.ErrNotFound, id)
		}
		name = d.Categories[i].Name
		d.Categories = append(d.Categories[:i], d.Categories[i+1:]...)
		return nil
	})
	if err != nil {
		return err
	}

	c.audit.Record(ctx, actor, audit.ActionCategoryDelete, "Category deleted: "+name)
	return nil
}

// Export returns the menu and tables.
func (c *Catalog) Export() *Export {
	out := &Export{ExportedAt: c.now().UTC()}
	c.store.Read(func(d *store.Data) {
		out.Products = append([]domain.Product{}, d.Products...)
		out.Categories = append([]domain.Category{}, d.Categories...)
		out.Tables = append([]domain.Table{}, d.Tables...)
	})
	return out
}

// Import replaces the given collections and tells clients to reload.
func (c *Catalog) Import(ctx context.Context, actor string, in Import) error {
	if in.Products == nil && in.Categories == nil {
		return fmt.Errorf("%w: nothing to import", domain.ErrMalformed)
	}

	err := c.store.Update(func(d *store.Data) error {
		maxProduct, err := uniqueIDs("product", in.Products, func(p domain.Product) int64 { return p.ID })
		if err != nil {
			return err
		}
		maxCategory, err := uniqueIDs("category", in.Categories, func(c domain.Category) int64 { return c.ID })
		if err != nil {
			return err
		}

		if in.Products != nil {
			d.Products = in.Products
		}
		if in.Categories != nil {
			d.Categories = in.Categories
		}
		c.store.ObserveID(max(maxProduct, maxCategory))
		return nil
	})
	if err != nil {
		return err
	}

	c.audit.Record(ctx, actor, audit.ActionImport,
		fmt.Sprintf("Data imported: %d products, %d categories", len(in.Products), len(in.Categories)))
	c.broadcaster.Broadcast(fanout.EventDataImported, nil)
	log.Info().Int("products", len(in.Products)).Int("categories", len(in.Categories)).Msg("Menu imported")
	return nil
}

// uniqueIDs checks that every record has a positive id of its own and
// returns the largest.
func uniqueIDs[T any](kind string, records []T, id func(T) int64) (int64, error) {
	seen := make(map[int64]struct{}, len(records))
	var highest int64
	for _, rec := range records {
		n := id(rec)
		if n <= 0 {
			return 0, fmt.Errorf("%w: %s id must be positive, got %d", domain.ErrMalformed, kind, n)
		}
		if _, dup := seen[n]; dup {
			return 0, fmt.Errorf("%w: duplicate %s id %d", domain.ErrMalformed, kind, n)
		}
		seen[n] = struct{}{}
		highest = max(highest, n)
	}
	return highest, nil
}

// Public returns available products, all categories and the tables that
// accept orders, without their tokens.
func (c *Catalog) Public() *PublicMenu {
	now := c.now()
	out := &PublicMenu{
		Products:   []domain.Product{},
		Categories: []domain.Category{},
		Tables:     []domain.PublicTable{},
	}
	c.store.Read(func(d *store.Data) {
		for _, p := range d.Products {
			if p.Available {
				out.Products = append(out.Products, p)
			}
		}
		out.Categories = append(out.Categories, d.Categories...)
		for i := range d.Tables {
			if d.Tables[i].UsableAt(now) {
				out.Tables = append(out.Tables, d.Tables[i].Public())
			}
		}
	})
	return out
}
