package domain

import "time"

// User is an account owner. The password hash is stored at creation time
// only; there is no session or login flow in this service.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
