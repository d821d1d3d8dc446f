package bot

import (
	"context"
	"testing"
	"time"

	"github.com/umarrg/chatbot/internal/chat"
)

func newTestRouter(t *testing.T, cfg RouterConfig) (*Router, *chat.Store, *fakeMessenger, *fakeClient) {
	t.Helper()
	out := &fakeMessenger{}
	client := &fakeClient{reply: "an answer"}
	store := chat.NewStore(chat.StoreConfig{Directive: "You are a helpful assistant."})
	pipeline := NewPipeline(PipelineConfig{Store: store, Client: client, Messenger: out})

	cfg.Pipeline = pipeline
	cfg.Messenger = out
	return NewRouter(cfg), store, out, client
}

func TestDispatch_CommandPrecedence(t *testing.T) {
	tests := []struct {
		name            string
		text            string
		wantText        string
		wantFormat      Format
		wantCompletions int
	}{
		{
			name:       "start",
			text:       "start",
			wantText:   welcomeText,
			wantFormat: FormatMarkdown,
		},
		{
			name:            "ask with question",
			text:            "ask What is the capital of France?",
			wantText:        "an answer",
			wantFormat:      FormatPlain,
			wantCompletions: 1,
		},
		{
			name:       "ask without question",
			text:       "ask",
			wantText:   askUsageText,
			wantFormat: FormatMarkdown,
		},
		{
			name:       "ask with only whitespace",
			text:       "ask   ",
			wantText:   askUsageText,
			wantFormat: FormatMarkdown,
		},
		{
			name:       "clear",
			text:       "clear",
			wantText:   clearedText,
			wantFormat: FormatPlain,
		},
		{
			name:       "help",
			text:       "help",
			wantText:   helpText,
			wantFormat: FormatMarkdown,
		},
		{
			name:       "uppercase command still matches",
			text:       "HELP",
			wantText:   helpText,
			wantFormat: FormatMarkdown,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, _, out, client := newTestRouter(t, RouterConfig{})

			r.Dispatch(context.Background(), Inbound{UserID: "u1", ChatID: "c1", Text: tc.text})

			msgs := out.messages()
			if len(msgs) != 1 {
				t.Fatalf("sent %d messages, want 1", len(msgs))
			}
			if msgs[0].text != tc.wantText {
				t.Errorf("sent %q, want %q", msgs[0].text, tc.wantText)
			}
			if msgs[0].format != tc.wantFormat {
				t.Errorf("format = %v, want %v", msgs[0].format, tc.wantFormat)
			}
			if client.callCount() != tc.wantCompletions {
				t.Errorf("completion calls = %d, want %d", client.callCount(), tc.wantCompletions)
			}
		})
	}
}

func TestDispatch_ClearResetsTheSession(t *testing.T) {
	r, store, _, _ := newTestRouter(t, RouterConfig{})
	ctx := context.Background()

	r.Dispatch(ctx, Inbound{UserID: "u1", ChatID: "c1", Text: "ask remember this"})
	if got := store.GetOrCreate("u1"); len(got) != 3 {
		t.Fatalf("transcript len before clear = %d, want 3", len(got))
	}

	r.Dispatch(ctx, Inbound{UserID: "u1", ChatID: "c1", Text: "clear"})

	got := store.GetOrCreate("u1")
	if len(got) != 1 || got[0].Role != chat.RoleSystem {
		t.Errorf("transcript after clear = %+v, want just the system directive", got)
	}
}

func TestDispatch_ClearDuringInFlightAskIsNotUndone(t *testing.T) {
	out := &fakeMessenger{}
	client := &fakeClient{reply: "late answer", release: make(chan struct{})}
	store := chat.NewStore(chat.StoreConfig{Directive: "You are a helpful assistant."})
	pipeline := NewPipeline(PipelineConfig{Store: store, Client: client, Messenger: out})
	r := NewRouter(RouterConfig{Pipeline: pipeline, Messenger: out})
	ctx := context.Background()

	askDone := make(chan struct{})
	go func() {
		defer close(askDone)
		r.Dispatch(ctx, Inbound{UserID: "u1", ChatID: "c1", Text: "ask still there?"})
	}()

	// Wait until the ask holds the user lock inside the upstream call.
	for client.callCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	clearDone := make(chan struct{})
	go func() {
		defer close(clearDone)
		r.Dispatch(ctx, Inbound{UserID: "u1", ChatID: "c1", Text: "clear"})
	}()

	// Give the clear time to reach the user lock before the completion
	// returns.
	time.Sleep(10 * time.Millisecond)
	close(client.release)
	<-askDone
	<-clearDone

	// The clear must win: the in-flight run's final Replace may not
	// resurrect the transcript it had loaded.
	got := store.GetOrCreate("u1")
	if len(got) != 1 || got[0].Role != chat.RoleSystem {
		t.Fatalf("transcript after clear = %+v, want just the system directive", got)
	}
}

func TestDispatch_FreeformIsIgnoredByDefault(t *testing.T) {
	r, store, out, client := newTestRouter(t, RouterConfig{})

	r.Dispatch(context.Background(), Inbound{UserID: "u1", ChatID: "c1", Text: "hello there"})

	if client.callCount() != 0 {
		t.Errorf("completion calls = %d, want 0", client.callCount())
	}
	if len(out.messages()) != 0 {
		t.Errorf("sent %d messages, want 0", len(out.messages()))
	}
	if store.Count() != 0 {
		t.Errorf("sessions = %d, want 0", store.Count())
	}
}

func TestDispatch_FreeformEntersPipelineWhenAllowed(t *testing.T) {
	r, store, out, client := newTestRouter(t, RouterConfig{AllowFreeform: true})

	r.Dispatch(context.Background(), Inbound{UserID: "u1", ChatID: "c1", Text: "hello there"})

	if client.callCount() != 1 {
		t.Fatalf("completion calls = %d, want 1", client.callCount())
	}
	msgs := out.messages()
	if len(msgs) != 1 || msgs[0].text != "an answer" {
		t.Errorf("sent %+v, want the completion reply", msgs)
	}
	got := store.GetOrCreate("u1")
	if len(got) != 3 || got[1].Content != "hello there" {
		t.Errorf("transcript = %+v, want the freeform text as the user turn", got)
	}
}

func TestDispatch_EmptyMessageIsSilentlyDropped(t *testing.T) {
	r, store, out, client := newTestRouter(t, RouterConfig{AllowFreeform: true})

	for _, text := range []string{"", "  ", "\n"} {
		r.Dispatch(context.Background(), Inbound{UserID: "u1", ChatID: "c1", Text: text})
	}

	if client.callCount() != 0 || len(out.messages()) != 0 || store.Count() != 0 {
		t.Errorf("empty messages must not route: calls=%d sent=%d sessions=%d",
			client.callCount(), len(out.messages()), store.Count())
	}
}

func TestDispatch_PrefixedCommands(t *testing.T) {
	t.Run("prefixed command matches", func(t *testing.T) {
		r, _, out, _ := newTestRouter(t, RouterConfig{Prefix: "!"})

		r.Dispatch(context.Background(), Inbound{UserID: "u1", ChatID: "c1", Text: "!help"})

		msgs := out.messages()
		if len(msgs) != 1 || msgs[0].text != helpText {
			t.Errorf("sent %+v, want help text", msgs)
		}
	})

	t.Run("prefixed unknown word gets unknown-command reply", func(t *testing.T) {
		r, _, out, _ := newTestRouter(t, RouterConfig{Prefix: "!"})

		r.Dispatch(context.Background(), Inbound{UserID: "u1", ChatID: "c1", Text: "!dance"})

		msgs := out.messages()
		if len(msgs) != 1 || msgs[0].text != unknownCommandText {
			t.Errorf("sent %+v, want unknown-command text", msgs)
		}
	})

	t.Run("bare command word without prefix is freeform", func(t *testing.T) {
		r, _, out, client := newTestRouter(t, RouterConfig{Prefix: "!"})

		r.Dispatch(context.Background(), Inbound{UserID: "u1", ChatID: "c1", Text: "help"})

		if client.callCount() != 0 || len(out.messages()) != 0 {
			t.Errorf("unprefixed text must be treated as freeform (ignored by default)")
		}
	})
}

func TestDispatch_UnknownBareWordIsFreeformWithoutPrefix(t *testing.T) {
	// Without a prefix only the four known command words route as commands;
	// anything else is freeform and follows the freeform policy.
	r, _, out, client := newTestRouter(t, RouterConfig{})

	r.Dispatch(context.Background(), Inbound{UserID: "u1", ChatID: "c1", Text: "dance for me"})

	if client.callCount() != 0 || len(out.messages()) != 0 {
		t.Errorf("unknown bare word must fall through to the freeform policy")
	}
}
