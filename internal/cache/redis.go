package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/avelkov/carrylink/config"
	"github.com/avelkov/carrylink/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Listings is the cached explore payload: both listing kinds in one entry so
// one mutation invalidates the whole explore view.
type Listings struct {
	Trips     []domain.Trip     `json:"trips"`
	Shipments []domain.Shipment `json:"shipments"`
}

type RedisCache struct {
	client      *redis.Client
	listingsTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, listingsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		listingsTTL: listingsTTL,
	}
}

func (c *RedisCache) GetListings(ctx context.Context) (*Listings, error) {
	data, err := c.client.Get(ctx, listingsKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var listings Listings
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, err
	}
	return &listings, nil
}

func (c *RedisCache) SetListings(ctx context.Context, listings *Listings) error {
	payload, err := json.Marshal(listings)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, listingsKey(), payload, c.listingsTTL).Err()
}

func (c *RedisCache) InvalidateListings(ctx context.Context) error {
	return c.client.Del(ctx, listingsKey()).Err()
}

// AcquireSubmitLock guards concurrent submissions for the same
// (trip, shipment) pair in front of the transactional upsert.
func (c *RedisCache) AcquireSubmitLock(ctx context.Context, tripID, shipmentID string, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, submitLockKey(tripID, shipmentID), "locked", ttl).Result()
}

func (c *RedisCache) ReleaseSubmitLock(ctx context.Context, tripID, shipmentID string) error {
	return c.client.Del(ctx, submitLockKey(tripID, shipmentID)).Err()
}

// SaveListing adds a listing id to the actor's bookmark set.
func (c *RedisCache) SaveListing(ctx context.Context, actorID, listingID string) error {
	return c.client.SAdd(ctx, savedKey(actorID), listingID).Err()
}

func (c *RedisCache) UnsaveListing(ctx context.Context, actorID, listingID string) error {
	return c.client.SRem(ctx, savedKey(actorID), listingID).Err()
}

func (c *RedisCache) SavedListings(ctx context.Context, actorID string) ([]string, error) {
	return c.client.SMembers(ctx, savedKey(actorID)).Result()
}

func listingsKey() string {
	return "cache:listings"
}

func submitLockKey(tripID, shipmentID string) string {
	return fmt.Sprintf("lock:request:%s:%s", tripID, shipmentID)
}

func savedKey(actorID string) string {
	return fmt.Sprintf("saved:%s", actorID)
}
