package domain

import (
	"encoding/json"
	"time"
)

type InventoryItem struct {
	ID          string    `json:"id"`
	ItemNumber  string    `json:"itemNumber"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	RetailPrice float64   `json:"retailPrice"`
	SalePrice   float64   `json:"salePrice"`
	MRP         float64   `json:"mrp"`
	HSNCode     string    `json:"hsnCode"`
	GSTPercent  float64   `json:"gstPercent"`
	CGSTPercent float64   `json:"cgstPercent"`
	SGSTPercent float64   `json:"sgstPercent"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ItemCreateRequest struct {
	ItemNumber  string  `json:"itemNumber"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	RetailPrice float64 `json:"retailPrice"`
	SalePrice   float64 `json:"salePrice"`
	MRP         float64 `json:"mrp"`
	HSNCode     string  `json:"hsnCode"`
	GSTPercent  float64 `json:"gstPercent"`
	Stock       int     `json:"stock"`
}

type ItemUpdateRequest struct {
	ItemNumber  *string  `json:"itemNumber,omitempty"`
	Name        *string  `json:"name,omitempty"`
	Type        *string  `json:"type,omitempty"`
	RetailPrice *float64 `json:"retailPrice,omitempty"`
	SalePrice   *float64 `json:"salePrice,omitempty"`
	MRP         *float64 `json:"mrp,omitempty"`
	HSNCode     *string  `json:"hsnCode,omitempty"`
	GSTPercent  *float64 `json:"gstPercent,omitempty"`
	Stock       *int     `json:"stock,omitempty"`

	// Read-only or derived fields. Accepted so a fetched item can be sent
	// back as-is; their values are ignored.
	ID          json.RawMessage `json:"id,omitempty"`
	CGSTPercent json.RawMessage `json:"cgstPercent,omitempty"`
	SGSTPercent json.RawMessage `json:"sgstPercent,omitempty"`
	CreatedAt   json.RawMessage `json:"createdAt,omitempty"`
	UpdatedAt   json.RawMessage `json:"updatedAt,omitempty"`
}

type BulkItemRequest struct {
	Items []ItemCreateRequest `json:"items"`
}

type BulkSkip struct {
	Index      int    `json:"index"`
	ItemNumber string `json:"itemNumber"`
	Reason     string `json:"reason"`
}

type BulkItemResponse struct {
	Inserted []InventoryItem `json:"inserted"`
	Skipped  []BulkSkip      `json:"skipped"`
}

type StockDecrement struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

type ReduceStockRequest struct {
	Items []StockDecrement `json:"items"`
}

type ReduceStockResponse struct {
	Applied int      `json:"applied"`
	Missing []string `json:"missing"`
}

// CustomerSnapshot is copied onto the invoice at sale time and never
// refreshed from any customer record.
type CustomerSnapshot struct {
	Name      string `json:"name"`
	Mobile    string `json:"mobile"`
	Age       int    `json:"age,omitempty"`
	Address   string `json:"address,omitempty"`
	GSTNumber string `json:"gstNumber,omitempty"`
}

// LineItem is a point-in-time copy of a catalog item. Later catalog edits do
// not reach invoices that were already issued.
type LineItem struct {
	ItemID      string  `json:"itemId,omitempty"`
	ItemNumber  string  `json:"itemNumber,omitempty"`
	Name        string  `json:"name"`
	Type        string  `json:"type,omitempty"`
	HSNCode     string  `json:"hsnCode,omitempty"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	GSTPercent  float64 `json:"gstPercent"`
	CGSTPercent float64 `json:"cgstPercent"`
	SGSTPercent float64 `json:"sgstPercent"`
	LineTotal   float64 `json:"lineTotal"`
}

type Invoice struct {
	ID              string           `json:"id"`
	InvoiceNo       string           `json:"invoiceNo"`
	Date            time.Time        `json:"date"`
	Customer        CustomerSnapshot `json:"customer"`
	LineItems       []LineItem       `json:"lineItems"`
	SubTotal        float64          `json:"subTotal"`
	DiscountPercent float64          `json:"discountPercent"`
	DiscountAmount  float64          `json:"discountAmount"`
	TaxableValue    float64          `json:"taxableValue"`
	CGSTAmount      float64          `json:"cgstAmount"`
	SGSTAmount      float64          `json:"sgstAmount"`
	RoundOffAmount  float64          `json:"roundOffAmount"`
	GrandTotal      float64          `json:"grandTotal"`
	PaymentCash     float64          `json:"paymentCash"`
	PaymentUPI      float64          `json:"paymentUPI"`
	PaymentCard     float64          `json:"paymentCard"`
	Advance         float64          `json:"advance"`
	Remaining       float64          `json:"remaining"`
	DeliveryDate    string           `json:"deliveryDate,omitempty"`
	OrderStatus     OrderStatus      `json:"orderStatus"`
	PaymentMethod   string           `json:"paymentMethod,omitempty"`
	DeliveredAt     *time.Time       `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// InvoiceRequest is the body of both submit and update.
type InvoiceRequest struct {
	Customer        CustomerSnapshot `json:"customer"`
	Items           []LineItem       `json:"items"`
	DiscountPercent float64          `json:"discountPercent"`
	PaymentCash     float64          `json:"paymentCash"`
	PaymentUPI      float64          `json:"paymentUPI"`
	PaymentCard     float64          `json:"paymentCard"`
	DeliveryDate    string           `json:"deliveryDate"`
}

type StatusRequest struct {
	Status        string `json:"status"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
}

type InvoiceNumberResponse struct {
	InvoiceNo string `json:"invoiceNo"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)
