package domain

import "time"

// TokenClaims is the validated view of a bearer token returned to callers.
type TokenClaims struct {
	Subject   string    `json:"sub"`
	Email     string    `json:"email"`
	IssuedAt  time.Time `json:"iat"`
	ExpiresAt time.Time `json:"exp"`
}

// VerificationResult reports the outcome of consuming a verification token.
type VerificationResult struct {
	AuthID     string `json:"auth_id"`
	Email      string `json:"email"`
	IsVerified bool   `json:"is_verified"`
}
