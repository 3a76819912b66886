package menu

import "mesa/internal/domain"

// DefaultCategories is the menu installed on first start.
func DefaultCategories() []domain.Category {
	return []domain.Category{
		{ID: 1, Name: "Entradas", Icon: "fa-utensils", Color: "bg-yellow-500"},
		{ID: 2, Name: "Platos Principales", Icon: "fa-drumstick-bite", Color: "bg-red-500"},
		{ID: 3, Name: "Bebidas", Icon: "fa-glass-martini", Color: "bg-blue-500"},
		{ID: 4, Name: "Postres", Icon: "fa-ice-cream", Color: "bg-pink-500"},
	}
}

// DefaultProducts is the product list installed on first start.
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{
			ID:          1,
			Name:        "Ensalada César",
			Description: "Lechuga romana fresca, crutones, parmesano y aderezo césar casero",
			Price:       8.50,
			CategoryID:  1,
			Image:       "https://images.unsplash.com/photo-1550304943-4f24f54ddde9?w=400",
			Available:   true,
			Options: []domain.ProductOption{
				{Name: "Pollo extra", Price: 3.00},
				{Name: "Aguacate", Price: 2.00},
			},
		},
		{
			ID:          2,
			Name:        "Hamburguesa Clásica",
			Description: "Carne de res 200g, queso cheddar, lechuga, tomate y salsa especial",
			Price:       12.00,
			CategoryID:  2,
			Image:       "https://images.unsplash.com/photo-1568901346375-23c9450c58cd?w=400",
			Available:   true,
			Options: []domain.ProductOption{
				{Name: "Doble carne", Price: 4.00},
				{Name: "Bacon", Price: 2.50},
				{Name: "Huevo", Price: 1.50},
			},
		},
		{
			ID:          3,
			Name:        "Pasta Alfredo",
			Description: "Fettuccine en salsa cremosa de parmesano con pollo grillé",
			Price:       14.00,
			CategoryID:  2,
			Image:       "https://images.unsplash.com/photo-1645112411341-6c4fd9367144?w=400",
			Available:   true,
			Options: []domain.ProductOption{
				{Name: "Camarones", Price: 5.00},
				{Name: "Champiñones", Price: 2.00},
			},
		},
		{
			ID:          4,
			Name:        "Limonada Natural",
			Description: "Limones frescos, agua y azúcar al gusto",
			Price:       3.50,
			CategoryID:  3,
			Image:       "https://images.unsplash.com/photo-1513558161293-cdaf765ed2fd?w=400",
			Available:   true,
			Options: []domain.ProductOption{
				{Name: "Menta", Price: 0.50},
				{Name: "Jengibre", Price: 0.50},
			},
		},
		{
			ID:          5,
			Name:        "Tiramisú",
			Description: "Clásico postre italiano con café y mascarpone",
			Price:       6.50,
			CategoryID:  4,
			Image:       "https://images.unsplash.com/photo-1571877227200-a0d98ea607e9?w=400",
			Available:   true,
			Options:     []domain.ProductOption{},
		},
	}
}
