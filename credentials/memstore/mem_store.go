package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/mento-client/credentials"
	"github.com/jrsteele09/mento-client/internal/utils"
)

var _ credentials.Store = (*MemStore)(nil)

// MemStore keeps credentials in process memory.
type MemStore struct {
	values map[string]string
	lock   sync.RWMutex
}

func New() *MemStore {
	return &MemStore{
		values: make(map[string]string),
	}
}

func (ms *MemStore) Get(_ context.Context, key string) (*string, error) {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	v, ok := ms.values[key]
	if !ok {
		return nil, nil
	}
	return utils.Ptr(v), nil
}

func (ms *MemStore) Set(_ context.Context, key, value string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	ms.values[key] = value
	return nil
}

func (ms *MemStore) Remove(_ context.Context, key string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	delete(ms.values, key)
	return nil
}

func (ms *MemStore) RemoveAll(_ context.Context, keys []string) error {
	ms.lock.Lock()
	defer ms.lock.Unlock()

	for _, k := range keys {
		delete(ms.values, k)
	}
	return nil
}

// Keys lists the stored keys in sorted order.
func (ms *MemStore) Keys() []string {
	ms.lock.RLock()
	defer ms.lock.RUnlock()

	keys := make([]string, 0, len(ms.values))
	for k := range ms.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
