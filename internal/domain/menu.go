package domain

// ProductOption is an optional add-on for a product.
type ProductOption struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Product is a menu entry.
type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       float64         `json:"price"`
	CategoryID  int64           `json:"category_id"`
	Image       string          `json:"image"`
	Available   bool            `json:"available"`
	Options     []ProductOption `json:"options"`
}

// Category groups products on the menu.
type Category struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}
