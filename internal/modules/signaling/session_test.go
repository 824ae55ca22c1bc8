package signaling

import (
	"sync"
	"testing"
)

type fakeSender struct {
	id string

	mu     sync.Mutex
	events []fakeEvent
}

type fakeEvent struct {
	name    string
	payload map[string]interface{}
}

func newFakeSender(id string) *fakeSender { return &fakeSender{id: id} }

func (f *fakeSender) ID() string { return f.id }

func (f *fakeSender) Send(event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, _ := payload.(map[string]interface{})
	f.events = append(f.events, fakeEvent{name: event, payload: m})
}

func (f *fakeSender) byName(name string) []fakeEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []fakeEvent
	for _, e := range f.events {
		if e.name == name {
			out = append(out, e)
		}
	}
	return out
}

func TestFanoutJoinInitiatesAllPairs(t *testing.T) {
	s := NewSession(KindFanout)
	a, b, c := newFakeSender("a"), newFakeSender("b"), newFakeSender("c")

	s.Join(a)
	s.Join(b)
	s.Join(c)

	// a-b, a-c, b-c
	if got := s.LinkCount(); got != 3 {
		t.Fatalf("LinkCount = %d, want 3", got)
	}

	// The joiner is the offerer on every link it initiated.
	for _, e := range c.byName(EventInitiate) {
		if e.payload["isOfferer"] != true {
			t.Errorf("joiner got isOfferer = %v, want true", e.payload["isOfferer"])
		}
	}
	if got := len(a.byName(EventInitiate)); got != 2 {
		t.Errorf("a saw %d initiates, want 2", got)
	}
}

func TestRingJoinLinksOneNeighbor(t *testing.T) {
	s := NewSession(KindRing)
	a, b, c := newFakeSender("a"), newFakeSender("b"), newFakeSender("c")

	s.Join(a)
	s.Join(b)
	s.Join(c)

	if got := s.LinkCount(); got != 2 {
		t.Fatalf("LinkCount = %d, want 2 (chain a-b-c)", got)
	}
	if got := len(b.byName(EventInitiate)); got != 2 {
		t.Errorf("middle member saw %d initiates, want 2", got)
	}
}

func TestRelayForwardsVerbatimToPeer(t *testing.T) {
	s := NewSession(KindFanout)
	a, b := newFakeSender("a"), newFakeSender("b")
	s.Join(a)
	s.Join(b)

	init := a.byName(EventInitiate)
	if len(init) != 1 {
		t.Fatalf("a saw %d initiates, want 1", len(init))
	}
	linkID, _ := init[0].payload["connectionId"].(string)

	s.Relay("a", linkID, map[string]interface{}{"sdp": "offer-blob"})

	got := b.byName(EventPayload)
	if len(got) != 1 {
		t.Fatalf("b saw %d payloads, want 1", len(got))
	}
	if got[0].payload["connectionId"] != linkID {
		t.Errorf("payload connectionId = %v, want %v", got[0].payload["connectionId"], linkID)
	}
	inner, _ := got[0].payload["payload"].(map[string]interface{})
	if inner["sdp"] != "offer-blob" {
		t.Errorf("payload not relayed verbatim: %v", inner)
	}
}

func TestRelayDropsUnknownLinkAndNonEndpoints(t *testing.T) {
	s := NewSession(KindFanout)
	a, b, c := newFakeSender("a"), newFakeSender("b"), newFakeSender("c")
	s.Join(a)
	s.Join(b)

	linkID, _ := a.byName(EventInitiate)[0].payload["connectionId"].(string)

	s.Relay("a", "no-such-link", "x")
	s.Join(c)
	s.Relay("c", linkID, "spoofed") // c is not an endpoint of a-b

	if got := len(b.byName(EventPayload)); got != 0 {
		t.Errorf("b received %d payloads, want 0", got)
	}
}

func TestLeaveTerminatesEveryLinkOfTheMember(t *testing.T) {
	s := NewSession(KindFanout)
	a, b, c := newFakeSender("a"), newFakeSender("b"), newFakeSender("c")
	s.Join(a)
	s.Join(b)
	s.Join(c)

	bLinks := map[string]bool{}
	for _, e := range b.byName(EventInitiate) {
		bLinks[e.payload["connectionId"].(string)] = true
	}

	s.Leave("b")

	// Both surviving peers get a terminate for their link with b.
	for _, peer := range []*fakeSender{a, c} {
		terms := peer.byName(EventTerminate)
		if len(terms) != 1 {
			t.Fatalf("%s saw %d terminates, want 1", peer.id, len(terms))
		}
		if !bLinks[terms[0].payload["connectionId"].(string)] {
			t.Errorf("%s got terminate for a link not involving b", peer.id)
		}
	}

	// a-c survives.
	if got := s.LinkCount(); got != 1 {
		t.Errorf("LinkCount = %d, want 1", got)
	}

	// No payload ever flows on a terminated link again.
	for linkID := range bLinks {
		s.Relay("a", linkID, "late")
	}
	if got := len(c.byName(EventPayload)); got != 0 {
		t.Errorf("payload delivered on terminated link")
	}
}

func TestRingLeaveInvitesReplacementLink(t *testing.T) {
	s := NewSession(KindRing)
	a, b, c := newFakeSender("a"), newFakeSender("b"), newFakeSender("c")
	s.Join(a)
	s.Join(b)
	s.Join(c)

	s.Leave("b")

	// The chain a-b-c must close back to a-c.
	if got := s.LinkCount(); got != 1 {
		t.Fatalf("LinkCount = %d, want 1", got)
	}
	if got := len(c.byName(EventInitiate)); got != 2 {
		t.Errorf("c saw %d initiates, want 2 (original + splice)", got)
	}
}

func TestLeaveOfUnknownMemberIsNoop(t *testing.T) {
	s := NewSession(KindRing)
	a := newFakeSender("a")
	s.Join(a)

	s.Leave("ghost")
	s.Leave("ghost")

	if got := s.LinkCount(); got != 0 {
		t.Errorf("LinkCount = %d, want 0", got)
	}
}

func TestDoubleJoinIsNoop(t *testing.T) {
	s := NewSession(KindFanout)
	a, b := newFakeSender("a"), newFakeSender("b")
	s.Join(a)
	s.Join(b)
	s.Join(b)

	if got := s.LinkCount(); got != 1 {
		t.Errorf("LinkCount = %d, want 1", got)
	}
}
