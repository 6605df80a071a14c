package models

import "time"

// User maps auth_user.
type User struct {
	LedgerModel
	Username   string    `gorm:"type:varchar(150);not null;uniqueIndex"`
	FirstName  string    `gorm:"type:varchar(30);not null"`
	LastName   string    `gorm:"type:varchar(30);not null"`
	Email      string    `gorm:"type:varchar(254);not null"`
	IsStaff    bool      `gorm:"not null"`
	IsActive   bool      `gorm:"not null"`
	DateJoined time.Time `gorm:"not null"`
}

func (User) TableName() string { return "auth_user" }
func (User) AppLabel() string  { return "auth" }
func (User) ModelName() string { return "user" }
