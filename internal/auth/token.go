// Package auth issues and verifies the HMAC-signed bearer tokens that carry
// the acting user's identity, role and departments.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"proposaldesk/internal/proposal"
	"proposaldesk/internal/rbac"
	"proposaldesk/internal/util"
)

type Claims struct {
	Sub         string   `json:"sub"`
	Name        string   `json:"name"`
	Role        string   `json:"role"`
	Departments []string `json:"departments,omitempty"`
	JTI         string   `json:"jti"`
	Exp         int64    `json:"exp"`
}

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// NewClaims builds claims for user valid for ttl from now.
func NewClaims(user proposal.ActingUser, ttl time.Duration, now time.Time) Claims {
	return Claims{
		Sub:         user.ID,
		Name:        user.Name,
		Role:        string(user.Role),
		Departments: user.Departments,
		JTI:         util.NewID("jti"),
		Exp:         now.Add(ttl).Unix(),
	}
}

// ActingUser converts verified claims into the workflow caller.
func (c Claims) ActingUser() proposal.ActingUser {
	return proposal.ActingUser{
		ID:          c.Sub,
		Name:        c.Name,
		Role:        rbac.Normalize(c.Role),
		Departments: c.Departments,
	}
}

// ExpiresAt is the token expiry as a time.
func (c Claims) ExpiresAt() time.Time {
	return time.Unix(c.Exp, 0)
}

func IssueToken(secret []byte, claims Claims) (string, error) {
	payloadBytes, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return payload + "." + sign(secret, payload), nil
}

func ParseToken(secret []byte, token string) (Claims, error) {
	payload, signature, ok := strings.Cut(token, ".")
	if !ok || strings.Contains(signature, ".") {
		return Claims{}, ErrInvalidToken
	}
	if !hmac.Equal([]byte(signature), []byte(sign(secret, payload))) {
		return Claims{}, ErrInvalidToken
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return Claims{}, ErrInvalidToken
	}
	var claims Claims
	if err := json.Unmarshal(decoded, &claims); err != nil {
		return Claims{}, ErrInvalidToken
	}
	if claims.Sub == "" || claims.JTI == "" || claims.Exp == 0 {
		return Claims{}, ErrInvalidToken
	}
	if time.Now().Unix() >= claims.Exp {
		return Claims{}, ErrExpiredToken
	}
	return claims, nil
}

func sign(secret []byte, payload string) string {
	sum := hmac.New(sha256.New, secret)
	_, _ = sum.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(sum.Sum(nil))
}
