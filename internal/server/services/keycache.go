package services

import (
	"sync"

	"github.com/dmitrijs2005/envvault/internal/common"
)

// KeyCache holds decrypted project session keys, keyed by project ID. It is
// process-local and explicitly owned: construct one per server (or per test)
// and clear it on sign-out or teardown. Keys never reach durable storage or
// logs.
type KeyCache struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewKeyCache() *KeyCache {
	return &KeyCache{keys: make(map[string][]byte)}
}

// Put stores a copy of key for the given project.
func (c *KeyCache) Put(projectID string, key []byte) {
	cp := make([]byte, len(key))
	copy(cp, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.keys[projectID]; ok {
		common.WipeByteArray(old)
	}
	c.keys[projectID] = cp
}

// Get returns a copy of the cached key, or false if the project is locked.
func (c *KeyCache) Get(projectID string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key, ok := c.keys[projectID]
	if !ok {
		return nil, false
	}
	cp := make([]byte, len(key))
	copy(cp, key)
	return cp, true
}

// Delete wipes and removes the key for the given project.
func (c *KeyCache) Delete(projectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if key, ok := c.keys[projectID]; ok {
		common.WipeByteArray(key)
		delete(c.keys, projectID)
	}
}

// Clear wipes and removes every cached key.
func (c *KeyCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, key := range c.keys {
		common.WipeByteArray(key)
		delete(c.keys, id)
	}
}
