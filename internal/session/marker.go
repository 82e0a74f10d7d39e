package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are carried by the session cookie.
type Claims struct {
	SessionID string `json:"sid"`
	Username  string `json:"usr,omitempty"`
	jwt.RegisteredClaims
}

// markerService signs and verifies the session cookie.
type markerService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func (m *markerService) issue(sessionID, username string) (string, time.Time, error) {
	if sessionID == "" {
		return "", time.Time{}, errors.New("session: session id is required")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := &Claims{
		SessionID: sessionID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   username,
			Issuer:    m.issuer,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("session: sign marker: %w", err)
	}
	return signed, expiresAt, nil
}

func (m *markerService) parse(marker string) (*Claims, error) {
	if marker == "" {
		return nil, errors.New("session: marker is empty")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)

	var claims Claims
	if _, err := parser.ParseWithClaims(marker, &claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("session: parse marker: %w", err)
	}

	if m.issuer != "" && claims.Issuer != m.issuer {
		return nil, errors.New("session: invalid issuer")
	}
	if claims.SessionID == "" {
		return nil, errors.New("session: missing session id claim")
	}
	return &claims, nil
}
