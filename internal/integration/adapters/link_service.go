package adapters

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/facturio/backend/internal/application/adapter"
	"github.com/facturio/backend/internal/domain/entity"
)

// LinkClaims are the claims of a customer view token. The token lets the
// client open their invoice or quote without an account.
type LinkClaims struct {
	ParentID   string `json:"parent_id"`
	ParentKind string `json:"parent_kind"`
	ClientID   string `json:"client_id"`
	jwt.RegisteredClaims
}

// linkService builds signed customer deep links.
type linkService struct {
	baseURL  string
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewLinkService creates a link service. A nil clock uses time.Now.
func NewLinkService(baseURL, secret string, tokenTTL time.Duration, clock func() time.Time) adapter.LinkService {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &linkService{
		baseURL:  baseURL,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      clock,
	}
}

// CustomerLink returns the absolute client-view URL with a signed token.
func (s *linkService) CustomerLink(kind entity.ParentKind, parentID, clientID uuid.UUID) (string, error) {
	now := s.now()
	claims := LinkClaims{
		ParentID:   parentID.String(),
		ParentKind: string(kind),
		ClientID:   clientID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "facturio",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign customer link token: %w", err)
	}

	segment := "invoices"
	if kind == entity.ParentKindQuote {
		segment = "quotes"
	}
	return fmt.Sprintf("%s/view/%s/%s?token=%s", s.baseURL, segment, parentID, token), nil
}

// ParseCustomerToken validates a customer view token and returns its claims.
// The client-facing view handler uses it; exported here so the signing and
// parsing rules stay in one place.
func ParseCustomerToken(tokenString, secret string) (*LinkClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LinkClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid customer link token: %w", err)
	}

	claims, ok := token.Claims.(*LinkClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid customer link token")
	}
	return claims, nil
}
