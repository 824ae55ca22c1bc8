package signaling

// Kind identifies a topology policy. The set is closed: policies are
// selected by exhaustive switch, not runtime lookup.
type Kind string

const (
	KindRing   Kind = "ring"
	KindFanout Kind = "fanout"
)

// ParseKind maps a policy identifier from the bridge to a known Kind.
// Unknown or empty identifiers fall back to fanout.
func ParseKind(id string) Kind {
	switch Kind(id) {
	case KindRing:
		return KindRing
	case KindFanout:
		return KindFanout
	default:
		return KindFanout
	}
}

// Policy decides which member pairs should hold a direct peer link during
// an activity. Implementations are pure over the membership snapshot they
// are handed; the session owns all link state.
type Policy interface {
	// OnUserJoin returns the existing members the joiner should link with.
	// members is in join order and excludes the joiner.
	OnUserJoin(joiner string, members []string) []string
	// OnUserLeave returns replacement pairs to establish after a member
	// leaves, keeping the topology covered. members is the remaining set in
	// join order, idx the position the leaver held. idx < 0 means the
	// leaver was never a member; that is a no-op, not an error.
	OnUserLeave(idx int, members []string) [][2]string
}

// NewPolicy constructs the policy for a kind.
func NewPolicy(k Kind) Policy {
	switch k {
	case KindRing:
		return ringPolicy{}
	default:
		return fanoutPolicy{}
	}
}

// ringPolicy links each joiner to exactly one logical neighbor: the most
// recently joined member. A leave in the middle of the chain splices the
// two former neighbors together.
type ringPolicy struct{}

func (ringPolicy) OnUserJoin(joiner string, members []string) []string {
	if len(members) == 0 {
		return nil
	}
	return []string{members[len(members)-1]}
}

func (ringPolicy) OnUserLeave(idx int, members []string) [][2]string {
	if idx <= 0 || idx >= len(members) {
		return nil
	}
	return [][2]string{{members[idx-1], members[idx]}}
}

// fanoutPolicy links every member with every other member.
type fanoutPolicy struct{}

func (fanoutPolicy) OnUserJoin(joiner string, members []string) []string {
	peers := make([]string, len(members))
	copy(peers, members)
	return peers
}

func (fanoutPolicy) OnUserLeave(idx int, members []string) [][2]string {
	return nil
}
