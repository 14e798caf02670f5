package order

// ---------------------------------------------------------------------------
// Canonical order status vocabularies
// ---------------------------------------------------------------------------

// Status represents the canonical lifecycle status of an order
type Status string

const (
	// StatusPending indicates the order is placed but not yet paid
	StatusPending Status = "pending"
	// StatusPaid indicates payment has been received
	StatusPaid Status = "paid"
	// StatusShipped indicates the order has been handed to a carrier
	StatusShipped Status = "shipped"
	// StatusDelivered indicates the order reached the customer
	StatusDelivered Status = "delivered"
	// StatusCancelled indicates the order was cancelled
	StatusCancelled Status = "cancelled"
)

// IsValid returns true if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusShipped, StatusDelivered, StatusCancelled:
		return true
	default:
		return false
	}
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsFinal returns true if the status is a terminal state
func (s Status) IsFinal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// FinancialStatus represents the canonical payment status of an order
type FinancialStatus string

const (
	// FinancialStatusPending indicates payment has not been captured
	FinancialStatusPending FinancialStatus = "pending"
	// FinancialStatusPaid indicates payment has been captured
	FinancialStatusPaid FinancialStatus = "paid"
	// FinancialStatusRefunded indicates payment was returned to the buyer
	FinancialStatusRefunded FinancialStatus = "refunded"
)

// IsValid returns true if the financial status is valid
func (s FinancialStatus) IsValid() bool {
	switch s {
	case FinancialStatusPending, FinancialStatusPaid, FinancialStatusRefunded:
		return true
	default:
		return false
	}
}

// String returns the string representation of FinancialStatus
func (s FinancialStatus) String() string {
	return string(s)
}

// FulfillmentStatus represents the canonical fulfillment status of an order
type FulfillmentStatus string

const (
	// FulfillmentStatusUnfulfilled indicates no items have shipped
	FulfillmentStatusUnfulfilled FulfillmentStatus = "unfulfilled"
	// FulfillmentStatusPartial indicates some but not all items have shipped
	FulfillmentStatusPartial FulfillmentStatus = "partial"
	// FulfillmentStatusFulfilled indicates all items have shipped
	FulfillmentStatusFulfilled FulfillmentStatus = "fulfilled"
)

// IsValid returns true if the fulfillment status is valid
func (s FulfillmentStatus) IsValid() bool {
	switch s {
	case FulfillmentStatusUnfulfilled, FulfillmentStatusPartial, FulfillmentStatusFulfilled:
		return true
	default:
		return false
	}
}

// String returns the string representation of FulfillmentStatus
func (s FulfillmentStatus) String() string {
	return string(s)
}

// StatusTuple bundles the three canonical status dimensions of an order.
// Platform status mappings resolve to a StatusTuple.
type StatusTuple struct {
	Status            Status
	FinancialStatus   FinancialStatus
	FulfillmentStatus FulfillmentStatus
}

// DefaultStatusTuple returns the fallback tuple used when a platform status
// has no configured mapping. Unknown statuses must never block the pipeline,
// so they land in the most conservative state.
func DefaultStatusTuple() StatusTuple {
	return StatusTuple{
		Status:            StatusPending,
		FinancialStatus:   FinancialStatusPending,
		FulfillmentStatus: FulfillmentStatusUnfulfilled,
	}
}
