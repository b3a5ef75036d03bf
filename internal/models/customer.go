package models

import "time"

// Customer is the single domain entity. Email is the external lookup key and
// is unique at the database level; ID and CreatedAt are assigned on insert.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	FullName  string    `gorm:"not null" json:"full_name"`
	Bio       string    `gorm:"not null" json:"bio"`
	CreatedAt time.Time `json:"created_at"`
}

func (Customer) TableName() string {
	return "customers"
}
