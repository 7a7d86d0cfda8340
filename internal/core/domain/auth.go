package domain

// TokenClaims identifies the caller behind an API bearer token.
// The pipeline has a single namespace, so a valid token grants full access.
type TokenClaims struct {
	Subject   string `json:"sub"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}
