// registry.go
// The registry is the only shared mutable state of the relay. Connection
// goroutines register and unregister themselves while other goroutines
// enumerate it for broadcasts, so every access goes through the RWMutex.

package relay

import "sync"

// Peer is a delivery target tracked by the Registry.
type Peer interface {
	ID() string
	State() State
	Send(msg []byte) error
	Close()
}

// Registry tracks the currently established connections.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

func NewRegistry() *Registry {
	return &Registry{
		peers: make(map[string]Peer),
	}
}

// Register adds p to the live set. It reports false if a peer with the same
// id is already present, in which case nothing changes.
func (r *Registry) Register(p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[p.ID()]; ok {
		return false
	}
	r.peers[p.ID()] = p
	return true
}

// Unregister removes p. Removing an absent peer is a no-op and reports false.
func (r *Registry) Unregister(p Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.peers[p.ID()]; !ok {
		return false
	}
	delete(r.peers, p.ID())
	return true
}

// ForEachOpen calls fn for every member that is Open at the moment fn would
// be invoked. It iterates a snapshot, so fn may block or mutate the registry.
func (r *Registry) ForEachOpen(fn func(Peer)) {
	for _, p := range r.snapshot() {
		if p.State() != StateOpen {
			continue
		}
		fn(p)
	}
}

// Len returns the number of registered peers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.peers)
}

func (r *Registry) snapshot() []Peer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	peers := make([]Peer, 0, len(r.peers))
	for _, p := range r.peers {
		peers = append(peers, p)
	}
	return peers
}
