package signaling

import (
	"sync"

	"github.com/google/uuid"
)

// Peer-connection negotiation events. The server never interprets the
// relayed payloads.
const (
	EventInitiate  = "signalingInitiate"
	EventPayload   = "signalingPayload"
	EventTerminate = "signalingTerminate"
)

// Sender is one deliverable connection.
type Sender interface {
	ID() string
	Send(event string, payload interface{})
}

type link struct {
	id   string
	a, b string // connection ids of the two endpoints
}

// Session holds the signaling state of one live activity: who joined the
// realtime mesh, which logical links exist, and the topology policy that
// decides new links. It dies with the activity; replacing an activity
// discards all of its links.
type Session struct {
	mu      sync.Mutex
	kind    Kind
	policy  Policy
	members map[string]Sender
	order   []string          // join order, for the policy
	links   map[string]link   // linkID -> endpoints
	byConn  map[string][]string // connID -> linkIDs
}

func NewSession(kind Kind) *Session {
	return &Session{
		kind:    kind,
		policy:  NewPolicy(kind),
		members: make(map[string]Sender),
		links:   make(map[string]link),
		byConn:  make(map[string][]string),
	}
}

// Kind returns the active topology kind.
func (s *Session) Kind() Kind { return s.kind }

// Join admits a member to the realtime mesh and initiates the links the
// policy asks for. The joiner is the offerer on each new link. Joining
// twice is a no-op.
func (s *Session) Join(m Sender) {
	s.mu.Lock()
	defer s.mu.Unlock()

	connID := m.ID()
	if _, ok := s.members[connID]; ok {
		return
	}

	peers := s.policy.OnUserJoin(connID, append([]string(nil), s.order...))
	s.members[connID] = m
	s.order = append(s.order, connID)

	for _, peer := range peers {
		s.initiate(connID, peer)
	}
}

// Relay forwards a negotiation payload to the other endpoint of the link.
// Payloads referencing unknown or terminated links are dropped, as are
// payloads from a connection that is not an endpoint.
func (s *Session) Relay(fromConnID, linkID string, payload interface{}) {
	s.mu.Lock()
	l, ok := s.links[linkID]
	var peer Sender
	if ok {
		switch fromConnID {
		case l.a:
			peer = s.members[l.b]
		case l.b:
			peer = s.members[l.a]
		}
	}
	s.mu.Unlock()

	if peer == nil {
		return
	}
	peer.Send(EventPayload, map[string]interface{}{
		"connectionId": linkID,
		"payload":      payload,
	})
}

// Leave terminates every link involving the member, drops it from the
// mesh, and establishes whatever replacement links the policy requires.
// Leaving without having joined is a no-op.
func (s *Session) Leave(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[connID]; !ok {
		return
	}

	involved := append([]string(nil), s.byConn[connID]...)
	for _, linkID := range involved {
		l, ok := s.links[linkID]
		if !ok {
			continue
		}
		other := l.a
		if other == connID {
			other = l.b
		}
		if peer, ok := s.members[other]; ok {
			peer.Send(EventTerminate, map[string]interface{}{"connectionId": linkID})
		}
		s.dropLink(l)
	}

	idx := -1
	for i, id := range s.order {
		if id == connID {
			idx = i
			break
		}
	}
	delete(s.members, connID)
	delete(s.byConn, connID)
	if idx >= 0 {
		s.order = append(s.order[:idx], s.order[idx+1:]...)
	}

	for _, pair := range s.policy.OnUserLeave(idx, append([]string(nil), s.order...)) {
		s.initiate(pair[0], pair[1])
	}
}

// initiate allocates a logical connection id between offerer and answerer
// and tells both sides to start negotiating. Linking a member that has
// already left is a no-op. Caller holds s.mu.
func (s *Session) initiate(offererID, answererID string) {
	offerer, okA := s.members[offererID]
	answerer, okB := s.members[answererID]
	if !okA || !okB || offererID == answererID {
		return
	}

	l := link{id: uuid.New().String(), a: offererID, b: answererID}
	s.links[l.id] = l
	s.byConn[offererID] = append(s.byConn[offererID], l.id)
	s.byConn[answererID] = append(s.byConn[answererID], l.id)

	offerer.Send(EventInitiate, map[string]interface{}{"connectionId": l.id, "isOfferer": true})
	answerer.Send(EventInitiate, map[string]interface{}{"connectionId": l.id, "isOfferer": false})
}

// dropLink removes a link from both indexes. Caller holds s.mu.
func (s *Session) dropLink(l link) {
	delete(s.links, l.id)
	for _, end := range [2]string{l.a, l.b} {
		list := s.byConn[end]
		for i, id := range list {
			if id == l.id {
				s.byConn[end] = append(list[:i], list[i+1:]...)
				break
			}
		}
	}
}

// LinkCount reports the number of live links (diagnostics).
func (s *Session) LinkCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}
