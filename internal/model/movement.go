package model

import (
	"time"

	"github.com/google/uuid"
)

// MovementType enum constants
const (
	MovementIn         = "IN"
	MovementOut        = "OUT"
	MovementAdjustment = "ADJUSTMENT"
)

// InventoryMovement is the append-only audit record of a single stock change.
// Quantity is the magnitude of the change; direction is carried by Type.
// Replaying all movements of a product in creation order from zero must
// reproduce the product's live CurrentStock. Rows are never updated or
// deleted after creation.
// The auto-increment key doubles as the creation-order sequence the replay
// invariant is defined over.
type InventoryMovement struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index" json:"product_id"`
	Product     *Product  `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	UserID      uuid.UUID `gorm:"type:uuid;not null" json:"user_id"`
	Type        string    `gorm:"type:varchar(15);not null;index" json:"type"` // IN, OUT, ADJUSTMENT
	Quantity    int       `gorm:"type:int;not null" json:"quantity"`
	StockBefore int       `gorm:"type:int;not null" json:"stock_before"`
	StockAfter  int       `gorm:"type:int;not null" json:"stock_after"`
	Reason      string    `gorm:"type:varchar(255)" json:"reason"`
	Reference   string    `gorm:"type:varchar(100);index" json:"reference"` // sale number or invoice number
	CreatedAt   time.Time `json:"created_at"`
}
