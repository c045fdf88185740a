// Package domain contains entities without logic, just meta-data
package domain

import (
	"errors"
	"fmt"
	"time"
)

const (
	MaxIdentityLen = 128
	MaxRoomNameLen = 128

	// IdentityPrefix is the prefix of identities synthesized by call clients.
	IdentityPrefix = "web-client"
)

var (
	ErrIdentityEmpty   = errors.New("participant identity empty")
	ErrIdentityTooLong = errors.New("participant identity too long")
)

type Identity string

// Participant is an entity (caller or agent) connected to a room.
type Participant struct {
	Identity Identity `json:"identity"`
}

// NewIdentity validates raw and returns it as an Identity.
func NewIdentity(raw string) (Identity, error) {
	if len(raw) == 0 {
		return "", ErrIdentityEmpty
	}
	if len(raw) > MaxIdentityLen {
		return "", ErrIdentityTooLong
	}
	return Identity(raw), nil
}

// ClientIdentity synthesizes the caller identity for a connection attempt
// started at t, e.g. "web-client-1718000000000".
func ClientIdentity(t time.Time) Identity {
	return Identity(fmt.Sprintf("%s-%d", IdentityPrefix, t.UnixMilli()))
}
