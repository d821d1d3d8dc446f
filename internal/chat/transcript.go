// Package chat holds the conversation data model for the relay: role-tagged
// turns, per-user transcripts, and the in-memory session store. A transcript
// always begins with the system directive turn; everything in this package is
// built around preserving that invariant.
package chat

// Role identifies the author of a [Turn].
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message unit in a conversation. Turns are treated as
// immutable once appended to a transcript.
type Turn struct {
	// Role is the author of the turn.
	Role Role

	// Content is the text content of the turn.
	Content string
}

// Transcript is an ordered sequence of turns forming one user's conversation
// context. Index 0 is always the single system directive turn.
type Transcript []Turn

// DefaultMaxTurns is the default transcript length bound applied by [Trim].
const DefaultMaxTurns = 20

// Trim bounds t to at most max turns while preserving the leading system
// directive. When t already fits, it is returned unchanged. Otherwise the
// result is turn 0 followed by the last max-1 turns of t in original order.
// Trimming an already-trimmed transcript with the same bound is a no-op.
func Trim(t Transcript, max int) Transcript {
	if max <= 0 {
		max = DefaultMaxTurns
	}
	if len(t) <= max {
		return t
	}

	out := make(Transcript, 0, max)
	out = append(out, t[0])
	out = append(out, t[len(t)-(max-1):]...)
	return out
}

// Clone returns a copy of t so callers can mutate the result without
// affecting the stored transcript.
func Clone(t Transcript) Transcript {
	out := make(Transcript, len(t))
	copy(out, t)
	return out
}
