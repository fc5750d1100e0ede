package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PurchaseInvoiceStatus constants
const (
	InvoiceStatusProcessed = "PROCESSED"
)

// PurchaseInvoice is a received supplier invoice. The invoice number is a
// business key; ingesting the same number twice is rejected.
type PurchaseInvoice struct {
	ID               uuid.UUID             `gorm:"type:uuid;primaryKey" json:"id"`
	InvoiceNumber    string                `gorm:"type:varchar(100);uniqueIndex;not null" json:"invoice_number"`
	SupplierID       uuid.UUID             `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier         *Supplier             `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	UserID           uuid.UUID             `gorm:"type:uuid;not null" json:"user_id"`
	IssueDate        time.Time             `gorm:"not null" json:"issue_date"`
	AcceptanceDate   *time.Time            `json:"acceptance_date"`
	Cufe             string                `gorm:"type:varchar(255)" json:"cufe"` // DIAN fiscal identifier, when present
	DigitalSignature string                `gorm:"type:text" json:"digital_signature"`
	Subtotal         decimal.Decimal       `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	Tax              decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`
	Total            decimal.Decimal       `gorm:"type:decimal(18,2);not null" json:"total"`
	DocumentPath     string                `gorm:"type:varchar(500)" json:"document_path"`
	Status           string                `gorm:"type:varchar(20);not null;default:'PROCESSED'" json:"status"`
	Items            []PurchaseInvoiceItem `gorm:"foreignKey:PurchaseInvoiceID" json:"items"`
	CreatedAt        time.Time             `json:"created_at"`
	UpdatedAt        time.Time             `json:"updated_at"`
}

func (p *PurchaseInvoice) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// PurchaseInvoiceItem is one product line of a purchase invoice, kept in
// input order by the auto-increment key.
type PurchaseInvoiceItem struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	PurchaseInvoiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"purchase_invoice_id"`
	ProductID         uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product           *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity          int       `gorm:"type:int;not null" json:"quantity"`
	UnitPrice         float64   `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Subtotal          float64   `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CreatedAt         time.Time `json:"created_at"`
}
