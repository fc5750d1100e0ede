package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleStatus constants
const (
	SaleStatusPending   = "PENDING"
	SaleStatusCompleted = "COMPLETED"
	SaleStatusCancelled = "CANCELLED"
)

// PaymentMethod constants
const (
	PaymentCash     = "EFECTIVO"
	PaymentCard     = "TARJETA"
	PaymentTransfer = "TRANSFERENCIA"
)

// SaleNumberPrefix is the human-readable prefix of sequential sale numbers
// (VTA-000001, VTA-000002, ...).
const SaleNumberPrefix = "VTA-"

// Sale is a completed POS transaction. Immutable once created except for
// status. Header totals come from the caller; line subtotals are computed.
type Sale struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SaleNumber    string          `gorm:"type:varchar(20);uniqueIndex;not null" json:"sale_number"`
	ClientID      *uuid.UUID      `gorm:"type:uuid;index" json:"client_id"`
	Client        *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	UserID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User          *User           `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Subtotal      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	Discount      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"discount"`
	Tax           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"tax"`
	Total         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	PaymentMethod string          `gorm:"type:varchar(20);not null" json:"payment_method"` // EFECTIVO, TARJETA, TRANSFERENCIA
	Status        string          `gorm:"type:varchar(20);not null;default:'COMPLETED';index" json:"status"`
	Notes         string          `gorm:"type:text" json:"notes"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID" json:"items"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleItem is one product line of a sale, created atomically with its header.
// Subtotal = Quantity × UnitPrice − Discount. The auto-increment key keeps
// the input line order observable.
type SaleItem struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	SaleID    uuid.UUID `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product   *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int       `gorm:"type:int;not null" json:"quantity"`
	UnitPrice float64   `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Discount  float64   `gorm:"type:decimal(12,2);not null;default:0" json:"discount"`
	Subtotal  float64   `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
}
