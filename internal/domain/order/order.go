package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ---------------------------------------------------------------------------
// Order Errors
// ---------------------------------------------------------------------------

var (
	ErrMissingPlatformOrderID = errors.New("order: platform order ID is required")
	ErrMissingCustomerName    = errors.New("order: customer name is required")
	ErrMissingCustomerCity    = errors.New("order: customer city is required")
	ErrNoItems                = errors.New("order: at least one item is required")
	ErrMissingCurrency        = errors.New("order: currency is required")
	ErrMissingOrderedAt       = errors.New("order: ordered-at timestamp is required")
)

// ItemError describes why a single line item failed validation
type ItemError struct {
	Index  int
	Reason string
}

// Error implements the error interface
func (e *ItemError) Error() string {
	return fmt.Sprintf("order: item %d invalid: %s", e.Index, e.Reason)
}

// ---------------------------------------------------------------------------
// Canonical Order
// ---------------------------------------------------------------------------

// Customer holds the buyer and delivery information of a canonical order
type Customer struct {
	Name    string `validate:"required"`
	Email   string
	Phone   string
	City    string `validate:"required"`
	Address string
	Country string
}

// Item represents a line item of a canonical order
type Item struct {
	// PlatformItemID is the line item ID on the source platform
	PlatformItemID string
	// ProductID is the product identifier on the source platform
	ProductID string `validate:"required"`
	// VariantID is the SKU/variant identifier on the source platform
	VariantID string
	// LocalVariantID is the mapped internal variant, when a product mapping
	// resolved. Zero when unmapped.
	LocalVariantID uuid.UUID
	// Name is the product name as sold
	Name string `validate:"required"`
	// SKU is the merchant SKU code, if the platform carries one
	SKU string
	// Quantity is the ordered quantity
	Quantity int `validate:"gt=0"`
	// UnitPrice is the per-unit selling price
	UnitPrice decimal.Decimal
	// Total is the line total after item-level discounts
	Total decimal.Decimal
}

// Totals holds the monetary summary of a canonical order
type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Order is the platform-agnostic canonical order produced by normalization.
// It is unique per (StoreID, PlatformOrderID).
type Order struct {
	// ID is our internal order ID, assigned on import
	ID uuid.UUID
	// StoreID identifies the connected store this order belongs to
	StoreID uuid.UUID
	// OrganizationID identifies the owning merchant organization
	OrganizationID uuid.UUID
	// Platform is the source platform code
	Platform string
	// PlatformOrderID is the order ID on the source platform
	PlatformOrderID string `validate:"required"`
	// OrderNumber is the human-facing order number
	OrderNumber string
	// Customer holds buyer and delivery information
	Customer Customer
	// Status is the canonical lifecycle status
	Status Status
	// FinancialStatus is the canonical payment status
	FinancialStatus FinancialStatus
	// FulfillmentStatus is the canonical fulfillment status
	FulfillmentStatus FulfillmentStatus
	// Items contains the order line items (at least one)
	Items []Item `validate:"min=1"`
	// Totals holds the monetary summary
	Totals Totals
	// Currency is the ISO currency code of all amounts
	Currency string `validate:"required"`
	// OrderedAt is when the order was placed on the platform
	OrderedAt time.Time
	// PlatformData is the raw platform payload, preserved opaquely
	PlatformData string
	// Notes carries buyer or seller notes
	Notes string
	// Tags carries free-form labels
	Tags []string
	// LastSyncedAt is when a push for this order last succeeded
	LastSyncedAt *time.Time
	// StatusChangedLocallyAt is set when the status was changed by a local,
	// merchant-authoritative action. The push path selects on this column so
	// that status writes applied by the pull path do not echo back out.
	StatusChangedLocallyAt *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// Validate checks the canonical order invariants that normalization must
// guarantee before an order is accepted into the pipeline.
func (o *Order) Validate() error {
	if o.PlatformOrderID == "" {
		return ErrMissingPlatformOrderID
	}
	if o.Customer.Name == "" {
		return ErrMissingCustomerName
	}
	if o.Customer.City == "" {
		return ErrMissingCustomerCity
	}
	if len(o.Items) == 0 {
		return ErrNoItems
	}
	for i := range o.Items {
		if err := o.Items[i].validate(i); err != nil {
			return err
		}
	}
	if o.Currency == "" {
		return ErrMissingCurrency
	}
	if o.OrderedAt.IsZero() {
		return ErrMissingOrderedAt
	}
	return nil
}

func (it *Item) validate(index int) error {
	if it.ProductID == "" {
		return &ItemError{Index: index, Reason: "product ID is required"}
	}
	if it.Name == "" {
		return &ItemError{Index: index, Reason: "product name is required"}
	}
	if it.Quantity <= 0 {
		return &ItemError{Index: index, Reason: "quantity must be positive"}
	}
	if it.UnitPrice.IsNegative() {
		return &ItemError{Index: index, Reason: "price must not be negative"}
	}
	return nil
}

// StatusDiffers reports whether any of the three status dimensions differ
// from the given tuple. Pull sync uses it to avoid redundant writes.
func (o *Order) StatusDiffers(t StatusTuple) bool {
	return o.Status != t.Status ||
		o.FinancialStatus != t.FinancialStatus ||
		o.FulfillmentStatus != t.FulfillmentStatus
}
