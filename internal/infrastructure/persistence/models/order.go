package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/omnisync/backend/internal/domain/order"
)

// OrderItemRecord is the JSON shape of one line item inside the items column
type OrderItemRecord struct {
	PlatformItemID string          `json:"platform_item_id,omitempty"`
	ProductID      string          `json:"product_id"`
	VariantID      string          `json:"variant_id,omitempty"`
	LocalVariantID uuid.UUID       `json:"local_variant_id,omitempty"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku,omitempty"`
	Quantity       int             `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Total          decimal.Decimal `json:"total"`
}

// OrderModel is the persistence model for the canonical Order entity.
// Line items and tags are serialized into JSON columns.
type OrderModel struct {
	ID                     uuid.UUID       `gorm:"type:uuid;primary_key"`
	StoreID                uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_orders_store_platform_order,priority:1;index:idx_orders_store_changed,priority:1"`
	OrganizationID         uuid.UUID       `gorm:"type:uuid;not null;index"`
	Platform               string          `gorm:"type:varchar(20);not null"`
	PlatformOrderID        string          `gorm:"type:varchar(100);not null;uniqueIndex:idx_orders_store_platform_order,priority:2"`
	OrderNumber            string          `gorm:"type:varchar(100)"`
	CustomerName           string          `gorm:"type:varchar(255);not null"`
	CustomerEmail          string          `gorm:"type:varchar(255)"`
	CustomerPhone          string          `gorm:"type:varchar(50)"`
	CustomerCity           string          `gorm:"type:varchar(100);not null"`
	CustomerAddress        string          `gorm:"type:text"`
	CustomerCountry        string          `gorm:"type:varchar(100)"`
	Status                 string          `gorm:"type:varchar(20);not null"`
	FinancialStatus        string          `gorm:"type:varchar(20);not null"`
	FulfillmentStatus      string          `gorm:"type:varchar(20);not null"`
	ItemsJSON              string          `gorm:"type:jsonb;column:items"`
	Subtotal               decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Tax                    decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Shipping               decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Discount               decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Total                  decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Currency               string          `gorm:"type:varchar(3);not null"`
	OrderedAt              time.Time       `gorm:"not null;index"`
	PlatformData           string          `gorm:"type:jsonb"`
	Notes                  string          `gorm:"type:text"`
	TagsJSON               string          `gorm:"type:jsonb;column:tags"`
	LastSyncedAt           *time.Time      `gorm:"index"`
	StatusChangedLocallyAt *time.Time      `gorm:"index:idx_orders_store_changed,priority:2"`
	CreatedAt              time.Time       `gorm:"not null"`
	UpdatedAt              time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a canonical Order
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		ID:              m.ID,
		StoreID:         m.StoreID,
		OrganizationID:  m.OrganizationID,
		Platform:        m.Platform,
		PlatformOrderID: m.PlatformOrderID,
		OrderNumber:     m.OrderNumber,
		Customer: order.Customer{
			Name:    m.CustomerName,
			Email:   m.CustomerEmail,
			Phone:   m.CustomerPhone,
			City:    m.CustomerCity,
			Address: m.CustomerAddress,
			Country: m.CustomerCountry,
		},
		Status:            order.Status(m.Status),
		FinancialStatus:   order.FinancialStatus(m.FinancialStatus),
		FulfillmentStatus: order.FulfillmentStatus(m.FulfillmentStatus),
		Totals: order.Totals{
			Subtotal: m.Subtotal,
			Tax:      m.Tax,
			Shipping: m.Shipping,
			Discount: m.Discount,
			Total:    m.Total,
		},
		Currency:               m.Currency,
		OrderedAt:              m.OrderedAt,
		PlatformData:           m.PlatformData,
		Notes:                  m.Notes,
		LastSyncedAt:           m.LastSyncedAt,
		StatusChangedLocallyAt: m.StatusChangedLocallyAt,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}

	if m.ItemsJSON != "" {
		var records []OrderItemRecord
		if err := json.Unmarshal([]byte(m.ItemsJSON), &records); err == nil {
			o.Items = make([]order.Item, 0, len(records))
			for _, rec := range records {
				o.Items = append(o.Items, order.Item{
					PlatformItemID: rec.PlatformItemID,
					ProductID:      rec.ProductID,
					VariantID:      rec.VariantID,
					LocalVariantID: rec.LocalVariantID,
					Name:           rec.Name,
					SKU:            rec.SKU,
					Quantity:       rec.Quantity,
					UnitPrice:      rec.UnitPrice,
					Total:          rec.Total,
				})
			}
		}
	}

	if m.TagsJSON != "" {
		var tags []string
		if err := json.Unmarshal([]byte(m.TagsJSON), &tags); err == nil {
			o.Tags = tags
		}
	}

	return o
}

// FromDomain populates the persistence model from a canonical Order
func (m *OrderModel) FromDomain(o *order.Order) {
	m.ID = o.ID
	m.StoreID = o.StoreID
	m.OrganizationID = o.OrganizationID
	m.Platform = o.Platform
	m.PlatformOrderID = o.PlatformOrderID
	m.OrderNumber = o.OrderNumber
	m.CustomerName = o.Customer.Name
	m.CustomerEmail = o.Customer.Email
	m.CustomerPhone = o.Customer.Phone
	m.CustomerCity = o.Customer.City
	m.CustomerAddress = o.Customer.Address
	m.CustomerCountry = o.Customer.Country
	m.Status = string(o.Status)
	m.FinancialStatus = string(o.FinancialStatus)
	m.FulfillmentStatus = string(o.FulfillmentStatus)
	m.Subtotal = o.Totals.Subtotal
	m.Tax = o.Totals.Tax
	m.Shipping = o.Totals.Shipping
	m.Discount = o.Totals.Discount
	m.Total = o.Totals.Total
	m.Currency = o.Currency
	m.OrderedAt = o.OrderedAt
	m.PlatformData = o.PlatformData
	m.Notes = o.Notes
	m.LastSyncedAt = o.LastSyncedAt
	m.StatusChangedLocallyAt = o.StatusChangedLocallyAt
	m.CreatedAt = o.CreatedAt
	m.UpdatedAt = o.UpdatedAt

	records := make([]OrderItemRecord, 0, len(o.Items))
	for _, it := range o.Items {
		records = append(records, OrderItemRecord{
			PlatformItemID: it.PlatformItemID,
			ProductID:      it.ProductID,
			VariantID:      it.VariantID,
			LocalVariantID: it.LocalVariantID,
			Name:           it.Name,
			SKU:            it.SKU,
			Quantity:       it.Quantity,
			UnitPrice:      it.UnitPrice,
			Total:          it.Total,
		})
	}
	if jsonBytes, err := json.Marshal(records); err == nil {
		m.ItemsJSON = string(jsonBytes)
	}

	if len(o.Tags) > 0 {
		if jsonBytes, err := json.Marshal(o.Tags); err == nil {
			m.TagsJSON = string(jsonBytes)
		}
	} else {
		m.TagsJSON = ""
	}
}
