package keymutex

import "sync"

// KeyedMutex is a mutex per string key: Lock/Unlock calls for the same key
// serialize, different keys never contend. Keys with no holders and no
// waiters are released, so the key space can be unbounded.
type KeyedMutex struct {
	mu   sync.Mutex
	keys map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func New() *KeyedMutex {
	return &KeyedMutex{keys: make(map[string]*entry)}
}

func (k *KeyedMutex) Lock(key string) {
	k.mu.Lock()
	e, ok := k.keys[key]
	if !ok {
		e = &entry{}
		k.keys[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
}

func (k *KeyedMutex) Unlock(key string) {
	k.mu.Lock()
	e, ok := k.keys[key]
	if !ok {
		k.mu.Unlock()
		panic("keymutex: unlock of unlocked key " + key)
	}
	e.refs--
	if e.refs == 0 {
		delete(k.keys, key)
	}
	k.mu.Unlock()

	e.mu.Unlock()
}
