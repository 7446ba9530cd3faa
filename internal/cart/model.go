package cart

import "time"

// Line is one cart line persisted in the local store. The cart survives
// restarts but is never the system of record; the backend order-creation
// call is authoritative.
type Line struct {
	ItemID          string `gorm:"primaryKey;size:64"`
	UserID          string `gorm:"primaryKey;size:64;index"`
	Name            string
	Price           int64
	DiscountPercent float64
	Quantity        int
	Image           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// TableName keeps the table name stable across gorm naming changes.
func (Line) TableName() string { return "cart_lines" }
