package core

import "sync"

// Registry maps live sessions to the rooms and personal channels they have
// joined. Joining is cheap and UI-driven, so it performs no authorization;
// that happens at message-send time. Presence is best-effort only: a session
// may be joined to a room while its tab is backgrounded.
type Registry struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]*Client // class id -> session id -> client
	personal map[string]map[string]*Client // regNo -> session id -> client
	bound    map[string]string             // session id -> bound regNo
	joined   map[string]map[string]struct{} // session id -> joined class ids
}

// NewRegistry constructs an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:    make(map[string]map[string]*Client),
		personal: make(map[string]map[string]*Client),
		bound:    make(map[string]string),
		joined:   make(map[string]map[string]struct{}),
	}
}

// JoinPersonal binds a session to a member's personal channel so it can
// receive notifications. Idempotent; rebinding replaces the old binding.
func (r *Registry) JoinPersonal(c *Client, regNo string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.bound[c.ID]; ok {
		if prev == regNo {
			return
		}
		r.unbindLocked(c.ID, prev)
	}

	r.bound[c.ID] = regNo
	sessions, ok := r.personal[regNo]
	if !ok {
		sessions = make(map[string]*Client)
		r.personal[regNo] = sessions
	}
	sessions[c.ID] = c
}

// JoinRoom subscribes a session to a room channel. Idempotent; reports
// whether the session was newly joined, which callers use as the room-entry
// signal for clearing unread counters exactly once.
func (r *Registry) JoinRoom(c *Client, classID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.rooms[classID]
	if !ok {
		sessions = make(map[string]*Client)
		r.rooms[classID] = sessions
	}
	if _, already := sessions[c.ID]; already {
		return false
	}
	sessions[c.ID] = c

	classes, ok := r.joined[c.ID]
	if !ok {
		classes = make(map[string]struct{})
		r.joined[c.ID] = classes
	}
	classes[classID] = struct{}{}
	return true
}

// Leave removes every binding for a disconnecting session. In-flight
// dispatches that already snapshotted their recipients are unaffected.
func (r *Registry) Leave(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for classID := range r.joined[c.ID] {
		if sessions, ok := r.rooms[classID]; ok {
			delete(sessions, c.ID)
			if len(sessions) == 0 {
				delete(r.rooms, classID)
			}
		}
	}
	delete(r.joined, c.ID)

	if regNo, ok := r.bound[c.ID]; ok {
		r.unbindLocked(c.ID, regNo)
		delete(r.bound, c.ID)
	}
}

// MemberOf returns the regNo a session is bound to, if any.
func (r *Registry) MemberOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	regNo, ok := r.bound[c.ID]
	return regNo, ok
}

// SessionsInRoom returns the sessions joined to a room, one entry per
// session id regardless of how many times it joined.
func (r *Registry) SessionsInRoom(classID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.rooms[classID]
	out := make([]*Client, 0, len(sessions))
	for _, c := range sessions {
		out = append(out, c)
	}
	return out
}

// PersonalSessions returns the live sessions bound to a member's personal
// channel.
func (r *Registry) PersonalSessions(regNo string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.personal[regNo]
	out := make([]*Client, 0, len(sessions))
	for _, c := range sessions {
		out = append(out, c)
	}
	return out
}

// MembersPresentIn returns the set of members with at least one bound
// session joined to the room. Best-effort presence, used only to suppress
// duplicate toast+broadcast delivery.
func (r *Registry) MembersPresentIn(classID string) map[string]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	present := make(map[string]struct{})
	for sessionID := range r.rooms[classID] {
		if regNo, ok := r.bound[sessionID]; ok {
			present[regNo] = struct{}{}
		}
	}
	return present
}

func (r *Registry) unbindLocked(sessionID, regNo string) {
	if sessions, ok := r.personal[regNo]; ok {
		delete(sessions, sessionID)
		if len(sessions) == 0 {
			delete(r.personal, regNo)
		}
	}
}
