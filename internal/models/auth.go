package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the roles recognised by route guards.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleViewer  UserRole = "VIEWER"
)

// JWTClaims represents the JWT payload for access tokens. Tokens are issued by
// an external identity provider or the schedulectl token command.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
