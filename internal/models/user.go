package models

import "time"

// User is the identity directory entry used to resolve grader and recipient names.
type User struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	FullName  string    `gorm:"size:255" json:"full_name"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
