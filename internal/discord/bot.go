// Package discord is the Discord transport of the relay. It owns the
// discordgo.Session lifecycle, turns gateway message events into inbound
// messages for the command router, and implements [bot.Messenger] for the
// outbound direction.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"

	"github.com/umarrg/chatbot/internal/bot"
)

// maxMessageLen is the Discord hard cap on message content length.
const maxMessageLen = 2000

// Dispatcher receives inbound messages; implemented by [bot.Router].
type Dispatcher interface {
	Dispatch(ctx context.Context, msg bot.Inbound)
}

// Bot owns the Discord gateway connection and feeds message events into
// the router.
type Bot struct {
	mu        sync.RWMutex
	session   *discordgo.Session
	router    Dispatcher
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Bot and registers the message handler. The gateway
// connection is not opened until [Bot.Run]; this lets callers build the
// outbound [Messenger] from the session and attach the router before any
// event can arrive.
func New(ctx context.Context, token string) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("discord: token is required")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session: session,
		done:    make(chan struct{}),
	}

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.onMessage(ctx, s, m)
	})

	return b, nil
}

// SetRouter attaches the inbound message router. Must be called before
// [Bot.Run]; events arriving without a router are dropped.
func (b *Bot) SetRouter(r Dispatcher) {
	b.mu.Lock()
	b.router = r
	b.mu.Unlock()
}

// onMessage filters one gateway message event and hands it to the router.
// Messages authored by bots (ourselves included) are dropped so the relay
// cannot loop on its own replies.
func (b *Bot) onMessage(ctx context.Context, s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	if s.State != nil && s.State.User != nil && m.Author.ID == s.State.User.ID {
		return
	}

	b.mu.RLock()
	router := b.router
	b.mu.RUnlock()
	if router == nil {
		return
	}

	router.Dispatch(ctx, bot.Inbound{
		UserID: m.Author.ID,
		ChatID: m.ChannelID,
		Text:   m.Content,
	})
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

// Run opens the gateway connection and blocks until ctx is cancelled or
// the bot is closed. The connection itself is event-driven; blocking here
// lets the bot slot into an errgroup next to the HTTP server.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}

	b.mu.RLock()
	user := b.session.State.User
	b.mu.RUnlock()
	if user != nil {
		slog.Info("discord gateway connected", "username", user.Username, "user_id", user.ID)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.done:
		return nil
	}
}

// Close disconnects from the Discord gateway.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		close(b.done)

		b.mu.Lock()
		defer b.mu.Unlock()
		if b.session != nil {
			if err := b.session.Close(); err != nil {
				closeErr = fmt.Errorf("discord: close session: %w", err)
			}
		}
		slog.Info("discord bot closed")
	})
	return closeErr
}

// Messenger implements [bot.Messenger] on top of a discordgo session.
//
// Discord renders lightweight markup natively, so the format hint does not
// change how content is sent; it is kept for transports that need it.
type Messenger struct {
	session *discordgo.Session
}

var _ bot.Messenger = (*Messenger)(nil)

// NewMessenger wraps session for outbound delivery.
func NewMessenger(session *discordgo.Session) *Messenger {
	return &Messenger{session: session}
}

// Send delivers text to the given channel, splitting content that exceeds
// the Discord message length cap.
func (m *Messenger) Send(ctx context.Context, chatID, text string, _ bot.Format) error {
	for _, part := range splitMessage(text, maxMessageLen) {
		if _, err := m.session.ChannelMessageSend(chatID, part, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("discord: send message: %w", err)
		}
	}
	return nil
}

// SendTyping emits the "is typing" indicator on the given channel.
func (m *Messenger) SendTyping(ctx context.Context, chatID string) error {
	if err := m.session.ChannelTyping(chatID, discordgo.WithContext(ctx)); err != nil {
		return fmt.Errorf("discord: send typing: %w", err)
	}
	return nil
}

// splitMessage cuts text into chunks of at most limit bytes, preferring to
// break on a newline and falling back to a space before a hard cut. A hard
// cut backs up to a rune boundary so no chunk carries invalid UTF-8.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var parts []string
	for len(text) > limit {
		cut := limit
		if i := strings.LastIndexByte(text[:limit], '\n'); i > 0 {
			cut = i
		} else if i := strings.LastIndexByte(text[:limit], ' '); i > 0 {
			cut = i
		} else {
			for cut > 0 && !utf8.RuneStart(text[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		parts = append(parts, text[:cut])
		text = text[cut:]
		if len(text) > 0 && (text[0] == '\n' || text[0] == ' ') {
			text = text[1:]
		}
	}
	if len(text) > 0 {
		parts = append(parts, text)
	}
	return parts
}
