// Package token mints and verifies LiveKit join tokens.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/livekit/protocol/auth"

	"github.com/shivwng1/lvkit-main/internal/domain"
)

// DefaultTTL matches the validity LiveKit SDKs give access tokens by default.
const DefaultTTL = 6 * time.Hour

var ErrMissingCredentials = errors.New("livekit api key/secret not configured")

// Issuer signs join tokens with a shared API key and secret.
type Issuer struct {
	apiKey    string
	apiSecret string
	ttl       time.Duration
}

func NewIssuer(apiKey, apiSecret string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{apiKey: apiKey, apiSecret: apiSecret, ttl: ttl}
}

// Configured reports whether tokens can be issued at all.
func (i *Issuer) Configured() bool {
	return i.apiKey != "" && i.apiSecret != ""
}

// Issue returns a token letting participant join room. It fails closed when
// the signing credentials are absent.
func (i *Issuer) Issue(room domain.RoomName, participant domain.Identity) (domain.JoinCredential, error) {
	if !i.Configured() {
		return domain.JoinCredential{}, ErrMissingCredentials
	}

	grant := &auth.VideoGrant{
		RoomJoin:   true,
		RoomCreate: true,
		Room:       string(room),
	}
	grant.SetCanPublish(true)
	grant.SetCanSubscribe(true)
	grant.SetCanPublishData(true)
	grant.SetCanUpdateOwnMetadata(true)

	at := auth.NewAccessToken(i.apiKey, i.apiSecret).
		SetIdentity(string(participant)).
		SetName(string(participant)).
		SetValidFor(i.ttl).
		SetVideoGrant(grant)

	jwt, err := at.ToJWT()
	if err != nil {
		return domain.JoinCredential{}, fmt.Errorf("sign token: %w", err)
	}
	return domain.JoinCredential{Token: jwt, Room: room, Identity: participant}, nil
}
