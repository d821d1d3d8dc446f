package bot

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/umarrg/chatbot/internal/chat"
	"github.com/umarrg/chatbot/internal/completion"
	"github.com/umarrg/chatbot/internal/observe"
)

// User-facing notices dispatched in place of a reply when the upstream
// completion fails, selected by error kind.
const (
	noticeUnauthorized = "The bot's API credentials are not configured correctly. Please contact the administrator."
	noticeRateLimited  = "The assistant is receiving too many requests right now. Please try again shortly."
	noticeUnavailable  = "The assistant's upstream service is currently unavailable. Please try again later."
	noticeUnknown      = "Something went wrong while generating a response. Please try again."
)

// noticeFor returns the fixed user-facing notice for a completion error kind.
func noticeFor(kind completion.Kind) string {
	switch kind {
	case completion.KindUnauthorized:
		return noticeUnauthorized
	case completion.KindRateLimited:
		return noticeRateLimited
	case completion.KindServiceUnavailable:
		return noticeUnavailable
	default:
		return noticeUnknown
	}
}

// Pipeline orchestrates one inbound user message: load-or-create session,
// append the user turn, trim, call the completion client, append the
// assistant turn on success, persist, and dispatch the reply (or the fixed
// error notice) to the outbound channel.
//
// Execution is serialized per user: a later message from the same user
// cannot load the session until the earlier message has been persisted and
// dispatched. Messages from different users interleave freely across the
// upstream call.
type Pipeline struct {
	store    *chat.Store
	client   completion.Client
	out      Messenger
	maxTurns int
	metrics  *observe.Metrics

	mu    sync.Mutex
	users map[string]*sync.Mutex
}

// PipelineConfig holds all dependencies for a [Pipeline].
type PipelineConfig struct {
	// Store owns all transcripts. Required.
	Store *chat.Store

	// Client is the upstream completion client. Required.
	Client completion.Client

	// Messenger carries replies and typing signals outbound. Required.
	Messenger Messenger

	// MaxTurns is the transcript length bound applied on every mutation.
	// Zero means [chat.DefaultMaxTurns].
	MaxTurns int

	// Metrics records completion latency and outcomes. May be nil.
	Metrics *observe.Metrics
}

// NewPipeline creates a Pipeline with the given dependencies.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = chat.DefaultMaxTurns
	}
	return &Pipeline{
		store:    cfg.Store,
		client:   cfg.Client,
		out:      cfg.Messenger,
		maxTurns: maxTurns,
		metrics:  cfg.Metrics,
		users:    make(map[string]*sync.Mutex),
	}
}

// Handle runs the request pipeline for one inbound user message.
//
// Messages with no textual content are dropped silently: no session
// interaction, no upstream call, no dispatch. Completion errors never
// propagate past the pipeline; each kind maps to a fixed user-facing
// notice dispatched in place of a reply.
func (p *Pipeline) Handle(ctx context.Context, msg Inbound) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		slog.Debug("dropping message without text", "user_id", msg.UserID)
		return
	}

	unlock := p.lockUser(msg.UserID)
	defer unlock()

	transcript := p.store.GetOrCreate(msg.UserID)
	transcript = append(transcript, chat.Turn{Role: chat.RoleUser, Content: text})
	transcript = chat.Trim(transcript, p.maxTurns)

	// Persist before the upstream call so the user's question stays
	// recorded even when no answer is produced.
	p.store.Replace(msg.UserID, transcript)

	// Fire-and-forget typing signal; failure never gates the request.
	if err := p.out.SendTyping(ctx, msg.ChatID); err != nil {
		slog.Warn("typing signal failed", "chat_id", msg.ChatID, "err", err)
	}

	start := time.Now()
	reply, err := p.client.Complete(ctx, transcript)
	elapsed := time.Since(start)

	if err != nil {
		kind := completion.KindOf(err)
		if p.metrics != nil {
			p.metrics.RecordCompletion(ctx, elapsed.Seconds(), string(kind))
		}
		slog.Error("completion failed",
			"user_id", msg.UserID,
			"kind", kind,
			"duration", elapsed,
			"err", err,
		)
		p.dispatch(ctx, msg.ChatID, noticeFor(kind), FormatPlain)
		return
	}

	if p.metrics != nil {
		p.metrics.RecordCompletion(ctx, elapsed.Seconds(), "")
	}

	transcript = append(transcript, chat.Turn{Role: chat.RoleAssistant, Content: reply})
	transcript = chat.Trim(transcript, p.maxTurns)
	p.store.Replace(msg.UserID, transcript)

	slog.Info("completion succeeded",
		"user_id", msg.UserID,
		"duration", elapsed,
		"transcript_len", len(transcript),
	)

	p.dispatch(ctx, msg.ChatID, reply, FormatPlain)
}

// ClearSession removes the user's session under the same per-user lock
// Handle holds. A clear issued while a completion is in flight therefore
// applies after that run has persisted, instead of being overwritten by
// its final Replace.
func (p *Pipeline) ClearSession(userID string) {
	unlock := p.lockUser(userID)
	defer unlock()
	p.store.Clear(userID)
}

// dispatch sends text outbound. Delivery failures are logged and not
// retried — there is no secondary channel to surface them on.
func (p *Pipeline) dispatch(ctx context.Context, chatID, text string, format Format) {
	if err := p.out.Send(ctx, chatID, text, format); err != nil {
		slog.Error("outbound send failed", "chat_id", chatID, "err", err)
	}
}

// lockUser acquires the per-user mutex, creating it on first use, and
// returns the matching unlock func. Entries persist for the process
// lifetime: a cleared or evicted user's mutex may still have waiters.
func (p *Pipeline) lockUser(userID string) func() {
	p.mu.Lock()
	l, ok := p.users[userID]
	if !ok {
		l = &sync.Mutex{}
		p.users[userID] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock
}
