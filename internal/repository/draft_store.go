package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/screen-slot-reservation/internal/model"
)

// DraftStore persists in-progress selections in Redis so an interrupted
// session can resume without re-discovering screens.  The draft is stored
// as JSON under draft:{campaign_id} and restored verbatim; it is a durable
// client-state cache, distinct from the authoritative hold state in MySQL.
type DraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewDraftStore constructs a DraftStore.  ttl bounds how long an abandoned
// draft lingers; zero means no expiry.
func NewDraftStore(rdb *redis.Client, ttl time.Duration) *DraftStore {
	if rdb == nil {
		panic("nil redis client passed to NewDraftStore")
	}
	return &DraftStore{rdb: rdb, ttl: ttl}
}

func draftKey(campaignID uint64) string {
	return fmt.Sprintf("draft:%d", campaignID)
}

// Save writes the draft, replacing any previous value.
func (s *DraftStore) Save(ctx context.Context, d model.Draft) error {
	payload, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, draftKey(d.CampaignID), payload, s.ttl).Err()
}

// Load returns the campaign's draft, or nil when none is stored.
func (s *DraftStore) Load(ctx context.Context, campaignID uint64) (*model.Draft, error) {
	payload, err := s.rdb.Get(ctx, draftKey(campaignID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var d model.Draft
	if err := json.Unmarshal(payload, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Clear removes the campaign's draft.
func (s *DraftStore) Clear(ctx context.Context, campaignID uint64) error {
	return s.rdb.Del(ctx, draftKey(campaignID)).Err()
}
