package api

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"mesa/internal/domain"
	"mesa/internal/menu"
)

// newValidator returns a validator that reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
	ReturnTo string `json:"return_to,omitempty"`
}

type validateQRRequest struct {
	Payload string `json:"payload" validate:"required"`
}

type orderItemRequest struct {
	ProductID int64                   `json:"product_id"`
	Name      string                  `json:"name"`
	Quantity  int                     `json:"quantity" validate:"gt=0"`
	Price     float64                 `json:"price" validate:"gte=0"`
	Options   []domain.SelectedOption `json:"options,omitempty"`
	Notes     string                  `json:"notes,omitempty"`
}

// createOrderRequest is a customer order. Token, when present, must name the
// same table as TableCode.
type createOrderRequest struct {
	TableCode  string             `json:"table_code"`
	Token      string             `json:"token,omitempty"`
	Items      []orderItemRequest `json:"items" validate:"required,min=1,dive"`
	Subtotal   float64            `json:"subtotal" validate:"gte=0"`
	Tax        float64            `json:"tax" validate:"gte=0"`
	Total      float64            `json:"total" validate:"gte=0"`
	ClientMeta map[string]any     `json:"client_meta,omitempty"`
}

func (req *createOrderRequest) items() []domain.OrderItem {
	out := make([]domain.OrderItem, len(req.Items))
	for i, it := range req.Items {
		out[i] = domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
			Options:   it.Options,
			Notes:     it.Notes,
		}
	}
	return out
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type createTableRequest struct {
	Code        string `json:"code,omitempty" validate:"omitempty,max=16"`
	IsTemporary bool   `json:"is_temporary"`
	Note        string `json:"note,omitempty"`
}

type tableStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

type productRequest struct {
	Name        string                 `json:"name" validate:"required"`
	Description string                 `json:"description"`
	Price       float64                `json:"price" validate:"gte=0"`
	CategoryID  int64                  `json:"category_id"`
	Image       string                 `json:"image"`
	Available   *bool                  `json:"available"`
	Options     []domain.ProductOption `json:"options" validate:"omitempty,dive"`
}

func (req *productRequest) input() menu.ProductInput {
	return menu.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Image:       req.Image,
		Available:   req.Available,
		Options:     req.Options,
	}
}

type productPatchRequest struct {
	Name        *string                `json:"name" validate:"omitempty,min=1"`
	Description *string                `json:"description"`
	Price       *float64               `json:"price" validate:"omitempty,gte=0"`
	CategoryID  *int64                 `json:"category_id"`
	Image       *string                `json:"image"`
	Available   *bool                  `json:"available"`
	Options     []domain.ProductOption `json:"options" validate:"omitempty,dive"`
}

func (req *productPatchRequest) patch() menu.ProductPatch {
	return menu.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		Image:       req.Image,
		Available:   req.Available,
		Options:     req.Options,
	}
}

type categoryRequest struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

func (req *categoryRequest) input() menu.CategoryInput {
	return menu.CategoryInput{Name: req.Name, Icon: req.Icon, Color: req.Color}
}
