package driven

import "github.com/custodia-labs/digest-core/internal/core/domain"

// AuthAdapter signs and verifies API bearer tokens
type AuthAdapter interface {
	// GenerateToken creates a signed token from claims
	GenerateToken(claims *domain.TokenClaims) (string, error)

	// ParseToken validates a token and extracts its claims
	ParseToken(token string) (*domain.TokenClaims, error)
}
