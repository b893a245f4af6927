// This module implements cache sharding which distributes keys uniformly across cache shards. Sharding helps by
// distributing locks: callers touching different keys only ever contend for the same shard's mutex when their keys
// hash to the same bucket, instead of a single lock serializing every cache access.

package cache

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jobforge/forge/pkg/utils"
)

// shardSlot pairs a Layer instance with the mutex that guards it. The Layer implementations in this package
// (mapLayer, NoOp) are not themselves thread-safe; ShardedCache supplies the synchronization so that only one
// mutex per shard exists, not one per entry.
type shardSlot[K comparable, V any] struct {
	mu    sync.RWMutex
	layer Layer[K, V]
}

// ShardedCache is a cache implementation that distributes keys across multiple underlying cache instances (shards).
// This pattern reduces lock contention in high-traffic scenarios, since different keys can be accessed in parallel
// on different shards. The monitoring API uses a ShardedCache keyed by state name and page to cache otherwise
// repeated dispatcher round-trips between eviction ticks.
type ShardedCache[K comparable, V any] struct {
	shards []*shardSlot[K, V]
	hash   func(key K) uint64 // Helps choose the shard index.
}

// NewShardedCache is the constructor for ShardedCache. It takes a cacheGenerator function, which is responsible for
// creating individual shard instances, and the desired number of shards (shardCount).
func NewShardedCache[K comparable, V any](cacheGenerator func() Layer[K, V], shardCount int) *ShardedCache[K, V] {
	if shardCount <= 0 {
		utils.RaiseInvariant("shard", "negative_shard_count",
			"Invalid capacity has been given to sharded cache.", "shardCount", shardCount)
		shardCount = 1
	}
	shardedCache := &ShardedCache[K, V]{shards: make([]*shardSlot[K, V], shardCount)}
	for i := range shardCount {
		shardedCache.shards[i] = &shardSlot[K, V]{layer: cacheGenerator()}
	}
	shardedCache.hash = hashFuncFor[K]()
	return shardedCache
}

// hashFuncFor returns a hashing function specialized for the concrete type that K is instantiated with, falling
// back to a generic (slower) path for types it doesn't special-case.
func hashFuncFor[K comparable]() func(key K) uint64 {
	switch any(*new(K)).(type) {
	case string:
		return func(key K) uint64 {
			return xxhash.Sum64String(any(key).(string))
		}
	case int:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(any(key).(int)))
			return xxhash.Sum64(b[:])
		}
	case uint:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(any(key).(uint)))
			return xxhash.Sum64(b[:])
		}
	case int64:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], uint64(any(key).(int64)))
			return xxhash.Sum64(b[:])
		}
	case uint64:
		return func(key K) uint64 {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], any(key).(uint64))
			return xxhash.Sum64(b[:])
		}
	default:
		return func(key K) uint64 {
			// Fallback for types without a dedicated case (e.g. structs): slower, but correct for any comparable type.
			return xxhash.Sum64String(fmt.Sprintf("%#v", key))
		}
	}
}

// getShard determines which shard a given key belongs to, by hashing the key and taking it modulo the shard count.
func (c *ShardedCache[K, V]) getShard(key K) *shardSlot[K, V] {
	return c.shards[c.hash(key)%uint64(len(c.shards))]
}

// Get finds the appropriate shard for the key and retrieves the value from it.
func (c *ShardedCache[K, V]) Get(key K) (V, bool /*found*/) {
	shard := c.getShard(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	return shard.layer.Get(key)
}

// Add finds the appropriate shard for the key and adds the key-value pair to it.
func (c *ShardedCache[K, V]) Add(key K, value V, ttl time.Duration) /*evictionOccurred*/ bool {
	shard := c.getShard(key)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	return shard.layer.Add(key, value, ttl)
}

// Keys aggregates the keys from all shards into a single slice. This can be a resource-intensive operation, as it
// requires iterating over every shard and collecting its keys.
func (c *ShardedCache[K, V]) Keys() []K {
	keys := make([]K, 0)
	for _, shard := range c.shards {
		shard.mu.RLock()
		keys = append(keys, shard.layer.Keys()...)
		shard.mu.RUnlock()
	}
	return keys
}

// Purge clears all items from the cache by calling Purge on every shard.
func (c *ShardedCache[K, V]) Purge() {
	for _, shard := range c.shards {
		shard.mu.Lock()
		shard.layer.Purge()
		shard.mu.Unlock()
	}
}
