package hub

// envelope is an internal tagged value carrying a broadcast-class command
// plus the routing metadata Sessions need to decide whether to forward it.
// The Hub publishes one envelope per broadcast-class inbound command; each
// Session's broadcast filter inspects it independently.
type envelope interface {
	isEnvelope()
}

// privMessageEnvelope carries a PRIVMSG or NOTICE for fan-out to channel
// members. Frame is the fully serialized line ready to write verbatim.
type privMessageEnvelope struct {
	Channels       []string
	OriginUsername string
	Frame          string
}

func (privMessageEnvelope) isEnvelope() {}

// joinEnvelope carries a JOIN for fan-out to every session (the spec's
// documented, deliberately unfiltered membership signal — see open
// question in SPEC_FULL.md §9).
type joinEnvelope struct {
	OriginUsername string
	Frame          string
}

func (joinEnvelope) isEnvelope() {}

// partEnvelope carries a PART for fan-out to members of the parted
// channel(s), analogous to joinEnvelope but scoped (a session that isn't a
// member of any parted channel has nothing to observe).
type partEnvelope struct {
	Channels       []string
	OriginUsername string
	Frame          string
}

func (partEnvelope) isEnvelope() {}

// topicEnvelope carries a topic change for fan-out to members of the
// affected channel (the setter already saw its own echo written directly,
// same as JOIN/PART).
type topicEnvelope struct {
	Channel string
	Frame   string
}

func (topicEnvelope) isEnvelope() {}
