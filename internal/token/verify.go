package token

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoVideoGrant = errors.New("token has no video grant")

// VideoClaims is the "video" grant of a LiveKit token.
type VideoClaims struct {
	Room                 string `json:"room,omitempty"`
	RoomJoin             bool   `json:"roomJoin,omitempty"`
	RoomCreate           bool   `json:"roomCreate,omitempty"`
	CanPublish           *bool  `json:"canPublish,omitempty"`
	CanSubscribe         *bool  `json:"canSubscribe,omitempty"`
	CanPublishData       *bool  `json:"canPublishData,omitempty"`
	CanUpdateOwnMetadata *bool  `json:"canUpdateOwnMetadata,omitempty"`
}

// Claims is the decoded payload of a LiveKit token.
type Claims struct {
	jwt.RegisteredClaims
	Name  string       `json:"name,omitempty"`
	Video *VideoClaims `json:"video,omitempty"`
}

// Identity is the participant identity the token is scoped to.
func (c *Claims) Identity() string { return c.Subject }

// Verify checks raw against the API key and secret and returns its claims.
// Expired, not-yet-valid and foreign tokens are rejected.
func Verify(raw, apiKey, apiSecret string) (*Claims, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, ErrMissingCredentials
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return []byte(apiSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(apiKey),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify token: %w", err)
	}
	if claims.Video == nil {
		return nil, ErrNoVideoGrant
	}
	return claims, nil
}
