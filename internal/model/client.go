package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client represents a buyer, keyed by a document identifier (CC, NIT, ...)
type Client struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Document         string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"document"`
	DocumentType     string    `gorm:"type:varchar(10);not null;default:'CC'" json:"document_type"`
	FullName         string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email            string    `gorm:"type:varchar(255)" json:"email"`
	Phone            string    `gorm:"type:varchar(50)" json:"phone"`
	Address          string    `gorm:"type:varchar(255)" json:"address"`
	City             string    `gorm:"type:varchar(100)" json:"city"`
	AcceptsMarketing bool      `gorm:"default:false" json:"accepts_marketing"`
	AcceptsData      bool      `gorm:"default:true" json:"accepts_data"`
	IsActive         bool      `gorm:"default:true" json:"is_active"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
