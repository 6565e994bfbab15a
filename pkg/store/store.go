// Package store persists one world.State per user.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"socialsim/pkg/world"
)

// ErrNotFound is returned by Read when no state exists for the user.
var ErrNotFound = errors.New("store: world state not found")

// Store is the persistence collaborator for world state. Implementations
// must accept states written by older builds; callers hydrate after Read.
type Store interface {
	Read(ctx context.Context, userID string) (*world.State, error)
	Write(ctx context.Context, st *world.State) error
	Delete(ctx context.Context, userID string) error
}

func encode(st *world.State) ([]byte, error) {
	if st == nil || st.UserID == "" {
		return nil, errors.New("store: state has no user id")
	}
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("failed to encode world state: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*world.State, error) {
	var st world.State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to decode world state: %w", err)
	}
	return &st, nil
}
