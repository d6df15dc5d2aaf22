package service

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LinkClaims bind a retrieval link to one contract.
type LinkClaims struct {
	ContractID string `json:"contract_id"`
	jwt.RegisteredClaims
}

// LinkSigner issues and checks tokens for contract retrieval links.
// A signer with an empty secret is disabled: it issues no tokens and
// Enabled reports false.
type LinkSigner struct {
	secret []byte
	expiry time.Duration
}

func NewLinkSigner(secret string, expireHours int) *LinkSigner {
	return &LinkSigner{
		secret: []byte(secret),
		expiry: time.Duration(expireHours) * time.Hour,
	}
}

func (s *LinkSigner) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Sign returns a token for contractID, or "" when signing is disabled.
func (s *LinkSigner) Sign(contractID string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	now := time.Now()
	claims := LinkClaims{
		ContractID: contractID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign link: %w", err)
	}
	return signed, nil
}

// Link returns the inline PDF route under publicURL for contractID,
// carrying a token when signing is enabled.
func (s *LinkSigner) Link(publicURL, contractID string) (string, error) {
	q := url.Values{}
	q.Set("contractId", contractID)

	token, err := s.Sign(contractID)
	if err != nil {
		return "", err
	}
	if token != "" {
		q.Set("token", token)
	}
	return strings.TrimRight(publicURL, "/") + "/get-contract-pdf?" + q.Encode(), nil
}

// Verify checks that tokenString is valid and issued for contractID.
func (s *LinkSigner) Verify(tokenString, contractID string) error {
	claims := &LinkClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid link token")
	}
	if claims.ContractID != contractID {
		return errors.New("link token issued for another contract")
	}
	return nil
}
