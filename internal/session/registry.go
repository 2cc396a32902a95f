// Package session tracks live connections and the identity bound to each.
package session

import (
	"hash/fnv"
	"sync"

	"github.com/google/uuid"

	"github.com/streamreact/companion/internal/domain"
)

// Registry owns the server-side state of every live connection.
// No method blocks beyond a short shard lock.
type Registry interface {
	// Register creates an unauthenticated session and returns its id.
	Register() string
	// Bind attaches identity to the session, replacing any earlier one.
	// It reports false when the session is unknown.
	Bind(id string, identity domain.Identity) bool
	// IdentityOf returns the bound identity, if any.
	IdentityOf(id string) (domain.Identity, bool)
	// Unregister forgets the session. Unknown ids are ignored.
	Unregister(id string)
	// Count returns live and authenticated session counts.
	Count() (live, authenticated int)
}

// Session is one connection's record.
type Session struct {
	ID       string
	Identity *domain.Identity
}

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// ShardedRegistry spreads sessions over fixed shards keyed by id hash so
// unrelated connections do not contend on one lock.
type ShardedRegistry struct {
	shards [shardCount]*shard
}

// NewRegistry creates an empty registry.
func NewRegistry() *ShardedRegistry {
	r := &ShardedRegistry{}
	for i := range r.shards {
		r.shards[i] = &shard{sessions: make(map[string]*Session)}
	}
	return r
}

func (r *ShardedRegistry) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return r.shards[h.Sum32()%shardCount]
}

// Register implements Registry.
func (r *ShardedRegistry) Register() string {
	id := uuid.New().String()
	r.RegisterID(id)
	return id
}

// RegisterID registers a session under a caller-chosen id, such as the
// transport's connection id.
func (r *ShardedRegistry) RegisterID(id string) {
	s := r.shardFor(id)
	s.mu.Lock()
	s.sessions[id] = &Session{ID: id}
	s.mu.Unlock()
}

// Bind implements Registry.
func (r *ShardedRegistry) Bind(id string, identity domain.Identity) bool {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return false
	}
	bound := identity
	sess.Identity = &bound
	return true
}

// IdentityOf implements Registry.
func (r *ShardedRegistry) IdentityOf(id string) (domain.Identity, bool) {
	s := r.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Identity == nil {
		return domain.Identity{}, false
	}
	return *sess.Identity, true
}

// Unregister implements Registry.
func (r *ShardedRegistry) Unregister(id string) {
	s := r.shardFor(id)
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Count implements Registry.
func (r *ShardedRegistry) Count() (live, authenticated int) {
	for _, s := range r.shards {
		s.mu.RLock()
		for _, sess := range s.sessions {
			live++
			if sess.Identity != nil {
				authenticated++
			}
		}
		s.mu.RUnlock()
	}
	return live, authenticated
}
