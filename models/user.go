package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a player account
type User struct {
	ID          string    `json:"id" bson:"_id"`
	DisplayName string    `json:"displayName" bson:"display_name"`
	Email       string    `json:"email" bson:"email"`
	Password    string    `json:"-" bson:"password"` // bcrypt hash, never serialized
	IsAdmin     bool      `json:"isAdmin" bson:"is_admin"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// LoginRequest represents login form data
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}

// HashPassword hashes the user's password using bcrypt
func (u *User) HashPassword(password string) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashed)
	return nil
}

// CheckPassword verifies the provided password against the stored hash
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

// ToSafeUser returns a copy of the user without the password hash
func (u *User) ToSafeUser() User {
	safe := *u
	safe.Password = ""
	return safe
}
