package models

import "github.com/golang-jwt/jwt/v5"

// Claims is the payload of both access and refresh tokens. TokenType
// distinguishes the two so a refresh token cannot authenticate a
// request.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"uid"`
	TokenType string `json:"typ"`
}

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)
