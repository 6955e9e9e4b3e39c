// Package cache provides a bounded LRU of resolved authors, adapted from
// the teacher's common/cache.go lruCache wrapper around
// hashicorp/golang-lru — simplified to the single strategy this system
// needs (the teacher's ARC/sharded variants have no use case here: there
// is exactly one hot key space, wallet address, and no concurrent-shard
// contention to justify sharding).
package cache

import (
	lru "github.com/hashicorp/golang-lru"

	"github.com/NikitaPirate/Glisk/internal/store"
)

// AuthorCache holds recently-resolved wallet -> Author lookups, avoiding a
// repeated lookup-then-default-fallback query for repeat mints from the
// same author (the webhook ingester resolves by wallet on every event;
// the image worker loads authors by id and does not use this cache).
type AuthorCache struct {
	lru *lru.Cache
}

// NewAuthorCache builds a cache holding up to size entries.
func NewAuthorCache(size int) (*AuthorCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &AuthorCache{lru: c}, nil
}

// Get returns the cached author for wallet (case-normalised by the
// caller before calling Get/Put — the cache itself does no normalisation
// so it stays a pure key/value map).
func (c *AuthorCache) Get(wallet string) (*store.Author, bool) {
	v, ok := c.lru.Get(wallet)
	if !ok {
		return nil, false
	}
	return v.(*store.Author), true
}

// Put caches author under wallet, evicting the least-recently-used entry
// if the cache is full.
func (c *AuthorCache) Put(wallet string, author *store.Author) {
	c.lru.Add(wallet, author)
}

// Invalidate drops wallet from the cache — used when a resolution later
// turns out stale (e.g. the author's prompt was edited out-of-band).
func (c *AuthorCache) Invalidate(wallet string) {
	c.lru.Remove(wallet)
}

// Purge clears the entire cache.
func (c *AuthorCache) Purge() {
	c.lru.Purge()
}
