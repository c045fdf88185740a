package core

import (
	"context"

	"github.com/shivwng1/lvkit-main/internal/domain"
)

// Backend is the credential and configuration service a call client talks to.
type Backend interface {
	FetchConfig(ctx context.Context) (domain.ClientConfig, error)
	FetchToken(ctx context.Context, room domain.RoomName, identity domain.Identity) (domain.JoinCredential, error)
}
