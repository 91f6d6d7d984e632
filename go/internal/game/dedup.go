package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/clicker/go/clients/clicker_client"
)

// DedupCache remembers recent click results keyed by DedupKey.
type DedupCache interface {
	Lookup(ctx context.Context, key string) (*clicker_client.ClickResult, bool, error)
	Store(ctx context.Context, key string, res *clicker_client.ClickResult) error
}

type DedupConfig struct {
	// A repeat inside Window returns the cached result
	Window time.Duration
	// Entries older than TTL are dropped
	TTL time.Duration
	// MaxEntries bounds the in-memory cache, oldest evicted first
	MaxEntries int
}

func DefaultDedupConfig() DedupConfig {
	return DedupConfig{
		Window:     2 * time.Second,
		TTL:        30 * time.Second,
		MaxEntries: 100,
	}
}

// DedupKey identifies a click submission.
func DedupKey(subjectID string, unitAmount int, requestID string) string {
	return fmt.Sprintf("%s_%d_%s", subjectID, unitAmount, requestID)
}

type dedupEntry struct {
	At     time.Time                   `json:"at"`
	Result *clicker_client.ClickResult `json:"result"`
}

// MemoryDedupCache is a bounded in-process DedupCache.
type MemoryDedupCache struct {
	cfg     DedupConfig
	clock   clockwork.Clock
	mu      sync.Mutex
	entries map[string]dedupEntry
}

func NewMemoryDedupCache(cfg DedupConfig, clock clockwork.Clock) *MemoryDedupCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryDedupCache{
		cfg:     cfg,
		clock:   clock,
		entries: make(map[string]dedupEntry),
	}
}

func (c *MemoryDedupCache) Lookup(ctx context.Context, key string) (*clicker_client.ClickResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.cleanup(now)

	entry, ok := c.entries[key]
	if !ok || now.Sub(entry.At) >= c.cfg.Window {
		return nil, false, nil
	}
	res := *entry.Result
	return &res, true, nil
}

func (c *MemoryDedupCache) Store(ctx context.Context, key string, res *clicker_client.ClickResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := *res
	now := c.clock.Now()
	c.entries[key] = dedupEntry{At: now, Result: &stored}
	c.cleanup(now)
	return nil
}

// Len returns the number of live entries.
func (c *MemoryDedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// cleanup must be called with mu held.
func (c *MemoryDedupCache) cleanup(now time.Time) {
	for key, entry := range c.entries {
		if now.Sub(entry.At) > c.cfg.TTL {
			delete(c.entries, key)
		}
	}
	if c.cfg.MaxEntries <= 0 || len(c.entries) <= c.cfg.MaxEntries {
		return
	}

	keys := make([]string, 0, len(c.entries))
	for key := range c.entries {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].At.Before(c.entries[keys[j]].At)
	})
	for _, key := range keys[:len(keys)-c.cfg.MaxEntries] {
		delete(c.entries, key)
	}
}

// RedisDedupCache shares dedup state between server replicas. Redis expires
// entries after TTL; the window is checked against the stored timestamp.
type RedisDedupCache struct {
	client    *redis.Client
	cfg       DedupConfig
	clock     clockwork.Clock
	keyPrefix string
}

func NewRedisDedupCache(client *redis.Client, cfg DedupConfig, clock clockwork.Clock) *RedisDedupCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisDedupCache{
		client:    client,
		cfg:       cfg,
		clock:     clock,
		keyPrefix: "clicker:dedup:",
	}
}

func (c *RedisDedupCache) Lookup(ctx context.Context, key string) (*clicker_client.ClickResult, bool, error) {
	data, err := c.client.Get(ctx, c.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get dedup entry: %w", err)
	}

	var entry dedupEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal dedup entry: %w", err)
	}
	if entry.Result == nil || c.clock.Now().Sub(entry.At) >= c.cfg.Window {
		return nil, false, nil
	}
	return entry.Result, true, nil
}

func (c *RedisDedupCache) Store(ctx context.Context, key string, res *clicker_client.ClickResult) error {
	data, err := json.Marshal(dedupEntry{At: c.clock.Now(), Result: res})
	if err != nil {
		return fmt.Errorf("failed to marshal dedup entry: %w", err)
	}
	if err := c.client.Set(ctx, c.keyPrefix+key, data, c.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to save dedup entry: %w", err)
	}
	return nil
}
