package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/umarrg/chatbot/internal/observe"
)

// Canned responses for the well-known commands.
const (
	welcomeText = "**Welcome!** I'm a chat assistant.\n\n" +
		"Ask me anything with `ask <question>`. I remember the last few " +
		"exchanges of our conversation; send `clear` to start over, or " +
		"`help` to see everything I understand."

	helpText = "**Commands**\n" +
		"`start` — show the welcome message\n" +
		"`ask <question>` — ask the assistant\n" +
		"`clear` — forget our conversation so far\n" +
		"`help` — show this message"

	askUsageText = "Please include a question, e.g. `ask What is the capital of France?`"

	clearedText = "Conversation cleared. We're starting fresh!"

	unknownCommandText = "I don't know that command. Send `help` to see what I understand."
)

// Router maps well-known textual commands to pipeline actions or canned
// responses. Matching is a deterministic prefix match evaluated in a fixed
// precedence order: start → ask with question → ask without question →
// clear → help → unknown command → freeform text.
//
// Freeform (non-command) text enters the pipeline only when AllowFreeform
// is set; the default is to ignore it, preserving the deliberate
// default-deny policy.
type Router struct {
	pipeline      *Pipeline
	out           Messenger
	prefix        string
	allowFreeform bool
	metrics       *observe.Metrics
}

// RouterConfig holds all dependencies for a [Router].
type RouterConfig struct {
	// Pipeline handles ask and freeform messages and owns session
	// clearing. Required.
	Pipeline *Pipeline

	// Messenger carries canned responses outbound. Required.
	Messenger Messenger

	// Prefix marks command messages (e.g. "!"). Empty means commands are
	// matched on the bare first word.
	Prefix string

	// AllowFreeform routes non-command text into the pipeline when true.
	AllowFreeform bool

	// Metrics counts routed messages by command. May be nil.
	Metrics *observe.Metrics
}

// NewRouter creates a Router with the given dependencies.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		pipeline:      cfg.Pipeline,
		out:           cfg.Messenger,
		prefix:        cfg.Prefix,
		allowFreeform: cfg.AllowFreeform,
		metrics:       cfg.Metrics,
	}
}

// Dispatch routes one inbound message. Messages without textual content
// are dropped silently before any routing.
func (r *Router) Dispatch(ctx context.Context, msg Inbound) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	command, rest, isCommand := r.splitCommand(text)
	if !isCommand {
		if r.allowFreeform {
			r.record(ctx, "freeform")
			r.pipeline.Handle(ctx, msg)
			return
		}
		slog.Debug("ignoring freeform text", "user_id", msg.UserID)
		r.record(ctx, "ignored")
		return
	}

	switch command {
	case "start":
		r.record(ctx, "start")
		r.send(ctx, msg.ChatID, welcomeText, FormatMarkdown)

	case "ask":
		if rest == "" {
			r.record(ctx, "ask_usage")
			r.send(ctx, msg.ChatID, askUsageText, FormatMarkdown)
			return
		}
		r.record(ctx, "ask")
		r.pipeline.Handle(ctx, Inbound{UserID: msg.UserID, ChatID: msg.ChatID, Text: rest})

	case "clear":
		r.record(ctx, "clear")
		r.pipeline.ClearSession(msg.UserID)
		slog.Info("session cleared", "user_id", msg.UserID)
		r.send(ctx, msg.ChatID, clearedText, FormatPlain)

	case "help":
		r.record(ctx, "help")
		r.send(ctx, msg.ChatID, helpText, FormatMarkdown)

	default:
		r.record(ctx, "unknown")
		r.send(ctx, msg.ChatID, unknownCommandText, FormatMarkdown)
	}
}

// splitCommand extracts the command word and its argument remainder from
// text. When a prefix is configured, only prefixed messages count as
// commands; without one, the bare first word is matched.
func (r *Router) splitCommand(text string) (command, rest string, ok bool) {
	if r.prefix != "" {
		if !strings.HasPrefix(text, r.prefix) {
			return "", "", false
		}
		text = text[len(r.prefix):]
	}

	command, rest, _ = strings.Cut(text, " ")
	command = strings.ToLower(strings.TrimSpace(command))
	rest = strings.TrimSpace(rest)
	if command == "" {
		return "", "", false
	}

	if r.prefix == "" {
		switch command {
		case "start", "ask", "clear", "help":
		default:
			return "", "", false
		}
	}
	return command, rest, true
}

func (r *Router) send(ctx context.Context, chatID, text string, format Format) {
	if err := r.out.Send(ctx, chatID, text, format); err != nil {
		slog.Error("outbound send failed", "chat_id", chatID, "err", err)
	}
}

func (r *Router) record(ctx context.Context, command string) {
	if r.metrics != nil {
		r.metrics.RecordMessage(ctx, command)
	}
}
