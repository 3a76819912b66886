package store

import (
	"encoding/json"
	"fmt"

	"mesa/internal/domain"
)

// Collection names as they appear in the persisted document.
const (
	CollectionTables     = "tables"
	CollectionOrders     = "orders"
	CollectionProducts   = "products"
	CollectionCategories = "categories"
	CollectionUsers      = "users"
	CollectionAuditLogs  = "auditLogs"
)

// Collections lists every collection in persistence order.
var Collections = []string{
	CollectionTables,
	CollectionOrders,
	CollectionProducts,
	CollectionCategories,
	CollectionUsers,
	CollectionAuditLogs,
}

// Data is the whole document held by the store.
type Data struct {
	Tables     []domain.Table         `json:"tables"`
	Orders     []domain.Order         `json:"orders"`
	Products   []domain.Product       `json:"products"`
	Categories []domain.Category      `json:"categories"`
	Users      []domain.User          `json:"users"`
	AuditLogs  []domain.AuditLogEntry `json:"auditLogs"`
}

// NewData returns an empty document with every collection present.
func NewData() *Data {
	d := &Data{}
	d.normalize()
	return d
}

// normalize replaces nil collections so they serialize as empty arrays.
func (d *Data) normalize() {
	if d.Tables == nil {
		d.Tables = []domain.Table{}
	}
	if d.Orders == nil {
		d.Orders = []domain.Order{}
	}
	if d.Products == nil {
		d.Products = []domain.Product{}
	}
	if d.Categories == nil {
		d.Categories = []domain.Category{}
	}
	if d.Users == nil {
		d.Users = []domain.User{}
	}
	if d.AuditLogs == nil {
		d.AuditLogs = []domain.AuditLogEntry{}
	}
}

// Clone returns a deep copy of d.
func (d *Data) Clone() (*Data, error) {
	raw, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var out Data
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	out.normalize()
	return &out, nil
}

// collection returns the named collection for per-collection backends.
func (d *Data) collection(name string) (any, error) {
	switch name {
	case CollectionTables:
		return &d.Tables, nil
	case CollectionOrders:
		return &d.Orders, nil
	case CollectionProducts:
		return &d.Products, nil
	case CollectionCategories:
		return &d.Categories, nil
	case CollectionUsers:
		return &d.Users, nil
	case CollectionAuditLogs:
		return &d.AuditLogs, nil
	default:
		return nil, fmt.Errorf("unknown collection %q", name)
	}
}

// TableIndex returns the position of the table with code, or -1.
func (d *Data) TableIndex(code string) int {
	for i := range d.Tables {
		if d.Tables[i].Code == code {
			return i
		}
	}
	return -1
}

// OrderIndex returns the position of the order with id, or -1.
func (d *Data) OrderIndex(id int64) int {
	for i := range d.Orders {
		if d.Orders[i].ID == id {
			return i
		}
	}
	return -1
}

// ProductIndex returns the position of the product with id, or -1.
func (d *Data) ProductIndex(id int64) int {
	for i := range d.Products {
		if d.Products[i].ID == id {
			return i
		}
	}
	return -1
}

// CategoryIndex returns the position of the category with id, or -1.
func (d *Data) CategoryIndex(id int64) int {
	for i := range d.Categories {
		if d.Categories[i].ID == id {
			return i
		}
	}
	return -1
}

// UserIndex returns the position of the user with username, or -1.
func (d *Data) UserIndex(username string) int {
	for i := range d.Users {
		if d.Users[i].Username == username {
			return i
		}
	}
	return -1
}
