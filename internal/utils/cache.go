package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"fmt"           // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Cache keys and lifetimes for the read paths
const (
	KeyAllProducts  = "products:all" // Public product list
	KeyAdminStat    = "admin:stat"   // Admin dashboard totals
	ProductCacheTTL = 5 * time.Minute
	AdminStatTTL    = 60 * time.Second
)

// ProductKey is the cache key of a single product
func ProductKey(id string) string {
	return fmt.Sprintf("product:%s", id) // One key per product
}

// GetCache retrieves a value from Redis and unmarshals it into dest.
// A nil client behaves like an empty cache.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Cache disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil // Cache disabled
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil // Nothing to do
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// InvalidateProduct drops every cached view that includes the product's stock
func InvalidateProduct(ctx context.Context, rdb *redis.Client, id string) error {
	return DeleteCache(ctx, rdb, KeyAllProducts, ProductKey(id), KeyAdminStat) // List, detail and totals
}
