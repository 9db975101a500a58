package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/xid"
)

const (
	stateIssuer = "todo-manager"
	stateTTL    = 10 * time.Minute
)

// StateService issues and verifies the OAuth2 "state" parameter.
//
// The state is a short-lived HS256 JWT carrying a random nonce. The login
// handler also stores it in a cookie; the callback requires the query value
// to equal the cookie and to verify here, so a forged or replayed callback
// from another site is rejected.
type StateService struct {
	secret []byte
}

// NewStateService creates a StateService. The secret must be at least 16
// characters.
func NewStateService(secret string) (*StateService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: state secret must be at least 16 characters")
	}
	return &StateService{secret: []byte(secret)}, nil
}

// Issue returns a fresh state valid for ten minutes.
func (s *StateService) Issue() (string, error) {
	return s.IssueWithTTL(stateTTL)
}

// IssueWithTTL returns a state that expires after ttl.
func (s *StateService) IssueWithTTL(ttl time.Duration) (string, error) {
	now := time.Now()
	c := jwt.RegisteredClaims{
		ID:        xid.New().String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    stateIssuer,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing state: %w", err)
	}
	return signed, nil
}

// Verify checks the signature, issuer, and expiry of state.
func (s *StateService) Verify(state string) error {
	token, err := jwt.ParseWithClaims(
		state,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return fmt.Errorf("auth: state expired")
		}
		return fmt.Errorf("auth: invalid state: %w", err)
	}

	c, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || c.ID == "" {
		return fmt.Errorf("auth: invalid state claims")
	}
	return nil
}
