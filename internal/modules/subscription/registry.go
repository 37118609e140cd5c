// Package subscription keeps the durable map of subscribers to the
// topics they follow.
package subscription

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dywsy21/Cecilia/internal/models"
)

// Registry is the subscriber → topics map backed by a single JSON
// file. The whole map lives in memory; every mutation rewrites the
// file through a temp file and rename.
type Registry struct {
	path string

	mu   sync.Mutex
	subs map[string][]models.Subscription
}

// NewRegistry loads the registry file, starting empty when it does not
// exist yet.
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{
		path: path,
		subs: make(map[string][]models.Subscription),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("subscription: read registry: %w", err)
	}
	if err := json.Unmarshal(data, &r.subs); err != nil {
		return nil, fmt.Errorf("subscription: parse registry: %w", err)
	}
	return r, nil
}

// flush rewrites the registry file. Callers hold r.mu.
func (r *Registry) flush() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("subscription: create data dir: %w", err)
	}
	data, err := json.MarshalIndent(r.subs, "", "  ")
	if err != nil {
		return fmt.Errorf("subscription: marshal registry: %w", err)
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("subscription: write registry: %w", err)
	}
	if err := os.Rename(tmp, r.path); err != nil {
		return fmt.Errorf("subscription: commit registry: %w", err)
	}
	return nil
}

// Add subscribes a user to a topic. Adding an existing pair is a
// no-op that reports false.
func (r *Registry) Add(subscriber string, sub models.Subscription) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.subs[subscriber] {
		if existing.Equal(sub) {
			return false, nil
		}
	}
	r.subs[subscriber] = append(r.subs[subscriber], sub)
	if err := r.flush(); err != nil {
		return false, err
	}
	return true, nil
}

// Remove unsubscribes a user from a topic. Removing an absent pair is
// a no-op that reports false. A subscriber with no topics left is
// dropped from the map.
func (r *Registry) Remove(subscriber string, sub models.Subscription) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	topics := r.subs[subscriber]
	for i, existing := range topics {
		if !existing.Equal(sub) {
			continue
		}
		topics = append(topics[:i], topics[i+1:]...)
		if len(topics) == 0 {
			delete(r.subs, subscriber)
		} else {
			r.subs[subscriber] = topics
		}
		if err := r.flush(); err != nil {
			return false, err
		}
		return true, nil
	}
	return false, nil
}

// List returns a subscriber's topics in insertion order.
func (r *Registry) List(subscriber string) []models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Subscription, len(r.subs[subscriber]))
	copy(out, r.subs[subscriber])
	return out
}

// SubscribersFor returns everyone following the topic key, sorted for
// deterministic dispatch order.
func (r *Registry) SubscribersFor(topicKey string) []string {
	target := models.ParseTopic(topicKey)

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []string
	for subscriber, topics := range r.subs {
		for _, sub := range topics {
			if sub.Equal(target) {
				out = append(out, subscriber)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// Topics returns every distinct topic with at least one subscriber,
// sorted by key.
func (r *Registry) Topics() []models.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[string]models.Subscription)
	for _, topics := range r.subs {
		for _, sub := range topics {
			seen[sub.String()] = sub
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make([]models.Subscription, 0, len(keys))
	for _, key := range keys {
		out = append(out, seen[key])
	}
	return out
}
