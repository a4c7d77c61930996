package models

import "time"

// Seller is an artist storefront able to receive payouts.
type Seller struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Name      string    `gorm:"column:name;not null"`
	Email     string    `gorm:"column:email;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
