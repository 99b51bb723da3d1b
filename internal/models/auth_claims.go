package models

import "github.com/golang-jwt/jwt/v5"

// JwtCustomClaims carries the trusted caller identity handed to this service
// by the upstream auth collaborator.
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
