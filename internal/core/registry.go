package core

import "sync"

// Registry tracks which connected sessions are in which channel. It is
// in-memory only and rebuilt empty on restart; persisted participant lists
// for private channels live in the store and are a separate concern.
//
// All methods are safe for concurrent use. A session is in at most one
// channel at a time; Join enforces the invariant by moving the session.
type Registry struct {
	mu       sync.RWMutex
	channels map[int64]map[string]*Client
	// current maps session ID to the channel it occupies.
	current map[string]int64
}

// NewRegistry constructs an empty membership registry.
func NewRegistry() *Registry {
	return &Registry{
		channels: make(map[int64]map[string]*Client),
		current:  make(map[string]int64),
	}
}

// Join records the session under channelID, removing it from any channel it
// previously occupied. It returns the previous channel ID (valid when moved
// is true) and whether the session was already a member (idempotent join).
func (r *Registry) Join(c *Client, channelID int64) (prev int64, moved bool, already bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.current[c.ID]; ok {
		if cur == channelID {
			return 0, false, true
		}
		r.removeLocked(c.ID, cur)
		prev, moved = cur, true
	}

	members, ok := r.channels[channelID]
	if !ok {
		members = make(map[string]*Client)
		r.channels[channelID] = members
	}
	members[c.ID] = c
	r.current[c.ID] = channelID

	return prev, moved, false
}

// Leave removes the session from channelID. It reports whether the session
// was actually a member; leaving a channel it is not in is a no-op.
func (r *Registry) Leave(c *Client, channelID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.current[c.ID]; !ok || cur != channelID {
		return false
	}
	r.removeLocked(c.ID, channelID)
	return true
}

// LeaveAll removes the session from every channel it appears in (at most
// one). It returns that channel's ID when the session was a member.
func (r *Registry) LeaveAll(c *Client) (int64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.current[c.ID]
	if !ok {
		return 0, false
	}
	r.removeLocked(c.ID, cur)
	return cur, true
}

// Channel returns the channel the session currently occupies.
func (r *Registry) Channel(sessionID string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channelID, ok := r.current[sessionID]
	return channelID, ok
}

// MembersOf returns a snapshot of the sessions currently in channelID.
// Used by the hub for broadcast target selection.
func (r *Registry) MembersOf(channelID int64) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.channels[channelID]
	out := make([]*Client, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

func (r *Registry) removeLocked(sessionID string, channelID int64) {
	if members, ok := r.channels[channelID]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(r.channels, channelID)
		}
	}
	delete(r.current, sessionID)
}
