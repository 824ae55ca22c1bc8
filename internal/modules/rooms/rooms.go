package rooms

import (
	"context"
	"sync"

	"github.com/classpod/core/internal/models"
	"github.com/classpod/core/internal/modules/signaling"
)

// Room-wide activity lifecycle events.
const (
	EventActivityStarted = "activityStarted"
	EventActivityEnded   = "activityEnded"
)

// Sender is one deliverable connection, as seen by the room manager.
type Sender interface {
	ID() string
	Send(event string, payload interface{})
}

// MembershipLookup resolves a user's role within a classroom. Backed by the
// external relational store; consulted fresh on every resolution.
type MembershipLookup interface {
	RoleOf(ctx context.Context, userID, classroomID string) (string, error)
}

// IdentityLookup resolves a connection id to its user identity.
type IdentityLookup interface {
	Lookup(connID string) (string, bool)
}

// LiveActivity is the currently running activity of a room. It exists only
// between a start and the matching end; its signaling session owns every
// peer link created for the current member set.
type LiveActivity struct {
	ID        string
	Info      interface{}
	Signaling *signaling.Session
}

// Room is the in-memory state of one classroom's live session. All
// mutation goes through Manager operations; nothing outside this package
// holds a reference to the internals.
type Room struct {
	id string

	mu          sync.Mutex
	members     map[string]Sender
	instructors map[string]struct{} // connIDs cached from the last Instructors call
	live        *LiveActivity
}

// ID returns the classroom identifier the room serves.
func (r *Room) ID() string { return r.id }

// Live returns the current activity id, if any.
func (r *Room) Live() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		return "", false
	}
	return r.live.ID, true
}

// SignalingSession returns the active activity's signaling session.
func (r *Room) SignalingSession() (*signaling.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live == nil {
		return nil, false
	}
	return r.live.Signaling, true
}

// Member is a resolved room member.
type Member struct {
	ConnID string
	UserID string
	Sender Sender
}

// Manager owns every room. Rooms are created lazily; empty ones without a
// live activity are reclaimed by the periodic sweep.
type Manager struct {
	mu    sync.RWMutex
	rooms map[string]*Room

	identities  IdentityLookup
	memberships MembershipLookup
}

func NewManager(identities IdentityLookup, memberships MembershipLookup) *Manager {
	return &Manager{
		rooms:       make(map[string]*Room),
		identities:  identities,
		memberships: memberships,
	}
}

// GetOrCreate returns the room for a classroom, creating an empty one on
// first use. Idempotent.
func (m *Manager) GetOrCreate(roomID string) *Room {
	m.mu.RLock()
	r, ok := m.rooms[roomID]
	m.mu.RUnlock()
	if ok {
		return r
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[roomID]; ok {
		return r
	}
	r = &Room{
		id:          roomID,
		members:     make(map[string]Sender),
		instructors: make(map[string]struct{}),
	}
	m.rooms[roomID] = r
	return r
}

// Admit adds a connection to the room and replays the current activity
// state to it alone, so a late joiner converges without waiting for the
// next broadcast. The catch-up is delivered under the room lock: a start
// or end racing with the admit must queue behind it, otherwise its
// broadcast could land before the stale catch-up and leave the joiner
// converged on the wrong state.
func (m *Manager) Admit(r *Room, s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.members[s.ID()] = s
	if r.live != nil {
		send(s, EventActivityStarted, activityPayload(r.live.ID, r.live.Info))
	} else {
		send(s, EventActivityEnded, map[string]interface{}{})
	}
}

// Remove drops a connection from membership and the instructor cache, and
// tells the active topology policy so it can tear down the member's peer
// links. Removing an unknown connection is a no-op.
func (m *Manager) Remove(r *Room, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, present := r.members[connID]
	delete(r.members, connID)
	delete(r.instructors, connID)
	if present && r.live != nil {
		r.live.Signaling.Leave(connID)
	}
}

// StartActivity replaces the room's live activity. The prior activity's
// signaling state is discarded wholesale; peers re-join the new topology.
// Every current member is told about the new activity before the lock is
// released, so no member action interleaves with the transition.
func (m *Manager) StartActivity(r *Room, activityID string, info interface{}, kind signaling.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.live = &LiveActivity{
		ID:        activityID,
		Info:      info,
		Signaling: signaling.NewSession(kind),
	}
	deliver(snapshotSenders(r.members), EventActivityStarted, activityPayload(activityID, info))
}

// EndActivity clears the live activity and notifies every member. Returns
// false when no activity was running.
func (m *Manager) EndActivity(r *Room) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.live == nil {
		return false
	}
	r.live = nil
	deliver(snapshotSenders(r.members), EventActivityEnded, map[string]interface{}{})
	return true
}

// Broadcast sends an event to every current member, fire-and-forget.
func (m *Manager) Broadcast(r *Room, event string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	deliver(snapshotSenders(r.members), event, payload)
}

// Members resolves the membership set to user identities. Connections whose
// identity is no longer registered are evicted from the room as a side
// effect; they are dead weight left by missed disconnects.
func (m *Manager) Members(ctx context.Context, r *Room) []Member {
	r.mu.Lock()
	conns := make([]Member, 0, len(r.members))
	for connID, s := range r.members {
		conns = append(conns, Member{ConnID: connID, Sender: s})
	}
	r.mu.Unlock()

	resolved := conns[:0]
	var evict []string
	for _, c := range conns {
		userID, ok := m.identities.Lookup(c.ConnID)
		if !ok {
			evict = append(evict, c.ConnID)
			continue
		}
		c.UserID = userID
		resolved = append(resolved, c)
	}

	if len(evict) > 0 {
		r.mu.Lock()
		for _, connID := range evict {
			delete(r.members, connID)
			delete(r.instructors, connID)
		}
		r.mu.Unlock()
	}
	return resolved
}

// Instructors snapshots the members currently holding the instructor role.
// The result is re-resolved against the membership store on every call;
// the per-room cache is only a hint for diagnostics, never trusted across
// actions because roles can change between them.
func (m *Manager) Instructors(ctx context.Context, r *Room) []Member {
	members := m.Members(ctx, r)

	out := members[:0]
	cache := make(map[string]struct{})
	for _, c := range members {
		role, err := m.memberships.RoleOf(ctx, c.UserID, r.id)
		if err != nil || role != models.RoleInstructor {
			continue
		}
		cache[c.ConnID] = struct{}{}
		out = append(out, c)
	}

	r.mu.Lock()
	r.instructors = cache
	r.mu.Unlock()
	return out
}

// LiveActivity reports the live activity of a classroom's room, if any.
func (m *Manager) LiveActivity(classroomID string) (string, bool) {
	m.mu.RLock()
	r, ok := m.rooms[classroomID]
	m.mu.RUnlock()
	if !ok {
		return "", false
	}
	return r.Live()
}

// SweepEmptyRooms drops every room with no members and no live activity,
// and reports how many were reclaimed. A room re-created by a later join
// starts from a clean state, so dropping is always safe.
func (m *Manager) SweepEmptyRooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	reclaimed := 0
	for id, r := range m.rooms {
		r.mu.Lock()
		empty := len(r.members) == 0 && r.live == nil
		r.mu.Unlock()
		if empty {
			delete(m.rooms, id)
			reclaimed++
		}
	}
	return reclaimed
}

// MemberCount reports current membership size (diagnostics).
func (m *Manager) MemberCount(r *Room) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func activityPayload(activityID string, info interface{}) map[string]interface{} {
	return map[string]interface{}{
		"activityId": activityID,
		"info":       info,
	}
}

func snapshotSenders(members map[string]Sender) []Sender {
	out := make([]Sender, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

// deliver fans an event out to each target. One recipient's failure (a
// panicking transport adapter included) must not block the rest.
func deliver(targets []Sender, event string, payload interface{}) {
	for _, s := range targets {
		send(s, event, payload)
	}
}

func send(s Sender, event string, payload interface{}) {
	defer func() { _ = recover() }()
	s.Send(event, payload)
}
