package store

import (
	"context"
	"fmt"
	"time"

	"socialsim/pkg/surreal"
	"socialsim/pkg/world"
)

const surrealTable = "world_states"

// surrealRecords is the subset of surreal.Client the store needs.
type surrealRecords interface {
	Upsert(ctx context.Context, table, id string, content map[string]interface{}) error
	SelectWhere(ctx context.Context, table string, filter map[string]interface{}, dest interface{}) error
	DeleteWhere(ctx context.Context, table string, filter map[string]interface{}) error
}

var _ surrealRecords = (*surreal.Client)(nil)

type SurrealStore struct {
	client surrealRecords
}

func NewSurrealStore(client *surreal.Client) *SurrealStore {
	return &SurrealStore{client: client}
}

type surrealRow struct {
	UserID    string `json:"user_id"`
	StateJSON string `json:"state_json"`
	UpdatedAt int64  `json:"updated_at"`
}

func (s *SurrealStore) Read(ctx context.Context, userID string) (*world.State, error) {
	var rows []surrealRow
	if err := s.client.SelectWhere(ctx, surrealTable, map[string]interface{}{"user_id": userID}, &rows); err != nil {
		return nil, fmt.Errorf("read world state: %w", err)
	}
	if len(rows) == 0 || rows[0].StateJSON == "" {
		return nil, ErrNotFound
	}
	return decode([]byte(rows[0].StateJSON))
}

// Write stores the state as an opaque JSON string so new optional fields
// never collide with a SCHEMAFULL table definition.
func (s *SurrealStore) Write(ctx context.Context, st *world.State) error {
	data, err := encode(st)
	if err != nil {
		return err
	}
	err = s.client.Upsert(ctx, surrealTable, st.UserID, map[string]interface{}{
		"user_id":    st.UserID,
		"state_json": string(data),
		"updated_at": time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("write world state: %w", err)
	}
	return nil
}

func (s *SurrealStore) Delete(ctx context.Context, userID string) error {
	if err := s.client.DeleteWhere(ctx, surrealTable, map[string]interface{}{"user_id": userID}); err != nil {
		return fmt.Errorf("delete world state: %w", err)
	}
	return nil
}
