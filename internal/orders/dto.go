package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/extrachill/marketplace-settlement/pkg/db/models"
	"github.com/extrachill/marketplace-settlement/pkg/enums"
)

// CreateOrderInput places an order for catalog products.
type CreateOrderInput struct {
	CustomerEmail string            `json:"customer_email" validate:"required,email"`
	Currency      string            `json:"currency" validate:"omitempty,len=3"`
	PaymentRef    *string           `json:"payment_ref,omitempty"`
	Items         []CreateOrderItem `json:"items" validate:"required,min=1,dive"`
}

// CreateOrderItem is one requested product and quantity.
type CreateOrderItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

// ListFilters narrows the admin order list.
type ListFilters struct {
	SettlementState *enums.SettlementState
	Status          *enums.OrderStatus
}

// OrderList is one page of orders.
type OrderList struct {
	Orders     []models.Order
	NextCursor string
}

// OrderDTO is the admin view of an order.
type OrderDTO struct {
	ID              uuid.UUID             `json:"id"`
	Status          enums.OrderStatus     `json:"status"`
	CustomerEmail   string                `json:"customer_email"`
	Currency        string                `json:"currency"`
	TotalCents      int64                 `json:"total_cents"`
	PaymentRef      *string               `json:"payment_ref,omitempty"`
	CaptureRef      *string               `json:"capture_ref,omitempty"`
	SettlementState enums.SettlementState `json:"settlement_state"`
	TransferGroup   *string               `json:"transfer_group,omitempty"`
	SettledAt       *time.Time            `json:"settled_at,omitempty"`
	LineItems       []LineItemDTO         `json:"line_items,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// LineItemDTO is one purchased product within an order.
type LineItemDTO struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	SellerID       int64     `json:"seller_id"`
}

// NoteDTO is an admin-facing audit note.
type NoteDTO struct {
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// InvalidProduct is a cart product whose seller cannot be paid.
type InvalidProduct struct {
	ProductID   uuid.UUID                  `json:"product_id"`
	ProductName string                     `json:"product_name"`
	SellerID    int64                      `json:"seller_id"`
	Reason      enums.InvalidProductReason `json:"reason"`
}

// CartValidation is the result of checking a cart's sellers.
type CartValidation struct {
	Valid           bool             `json:"valid"`
	InvalidProducts []InvalidProduct `json:"invalid_products,omitempty"`
}

// ToDTO maps an order and its loaded line items.
func ToDTO(o *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              o.ID,
		Status:          o.Status,
		CustomerEmail:   o.CustomerEmail,
		Currency:        o.Currency,
		TotalCents:      o.TotalCents,
		PaymentRef:      o.PaymentRef,
		CaptureRef:      o.CaptureRef,
		SettlementState: o.SettlementState,
		TransferGroup:   o.TransferGroup,
		SettledAt:       o.SettledAt,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, item := range o.LineItems {
		dto.LineItems = append(dto.LineItems, LineItemDTO{
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Qty:            item.Qty,
			SubtotalCents:  item.SubtotalCents,
			SellerID:       item.SellerID,
		})
	}
	return dto
}
