// Package bot contains the platform-independent core of the relay: the
// request pipeline that carries one user message through the session store
// and the completion client, and the command router that maps inbound text
// to pipeline actions or canned responses.
//
// The messaging platform itself is an external collaborator reached through
// the [Messenger] interface; package discord provides the production
// implementation.
package bot

import "context"

// Format is the outbound text format hint.
type Format int

const (
	// FormatPlain sends the text as-is.
	FormatPlain Format = iota

	// FormatMarkdown requests lightweight markup rendering, used for help
	// and welcome text.
	FormatMarkdown
)

// Messenger is the outbound side of the messaging platform.
//
// Implementations must be safe for concurrent use. Send failures are
// transport errors: the pipeline logs them and moves on — there is no
// secondary channel to surface them further.
type Messenger interface {
	// Send delivers text to the given chat. The format hint distinguishes
	// plain text from lightweight markup.
	Send(ctx context.Context, chatID, text string, format Format) error

	// SendTyping emits a best-effort "composing" signal to the given chat.
	SendTyping(ctx context.Context, chatID string) error
}

// Inbound is one incoming message event from the messaging platform.
type Inbound struct {
	// UserID is the platform-assigned sender identifier, the session key.
	UserID string

	// ChatID identifies the conversation the message arrived on; replies
	// go back to it.
	ChatID string

	// Text is the message's textual content. May be empty for non-text
	// events.
	Text string
}
