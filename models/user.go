package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// User is an operator account of the analytics service. Accounts are
// provisioned by the platform's auth service; this service only reads them
// to issue and verify its own API tokens.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LoginRequest is the expected input for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// JwtClaims are the claims carried by this service's JWTs.
type JwtClaims struct {
	UserID int64  `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
