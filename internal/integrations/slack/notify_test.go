package slackbot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/slack-go/slack"
)

type slackCalls struct {
	methods []string
	texts   []string
}

func newMockSlack(t *testing.T) (*Notifier, *slackCalls) {
	t.Helper()
	calls := &slackCalls{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := strings.TrimPrefix(r.URL.Path, "/api/")
		calls.methods = append(calls.methods, method)
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		switch method {
		case "chat.postMessage":
			if got := r.Form.Get("channel"); got != "C123" {
				t.Fatalf("unexpected channel: %q", got)
			}
			calls.texts = append(calls.texts, r.Form.Get("text"))
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "channel": "C123", "ts": "1.0"})
		case "files.getUploadURLExternal":
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error": "not_allowed_token_type"})
		default:
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		}
	}))
	t.Cleanup(server.Close)

	cfg := Config{SlackBotToken: "xoxb-test", SlackChannelID: "C123"}
	n := NewNotifier(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), slack.OptionAPIURL(server.URL+"/api/"))
	return n, calls
}

func TestNotifyPostsSummaryWithoutCSV(t *testing.T) {
	n, calls := newMockSlack(t)

	err := n.Notify(context.Background(), RunReport{
		RunID:   "run-1",
		Mode:    "full",
		Summary: "Summary: Total = 2, Active = 1, Threats = 1, No info = 1",
	})
	if err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(calls.texts) != 1 || !strings.Contains(calls.texts[0], "Summary: Total = 2") || !strings.Contains(calls.texts[0], "run-1") {
		t.Fatalf("unexpected messages: %q", calls.texts)
	}
	for _, m := range calls.methods {
		if strings.HasPrefix(m, "files.") {
			t.Fatalf("no upload expected without a CSV, saw %s", m)
		}
	}
}

func TestNotifyUploadsCSVAfterMessage(t *testing.T) {
	n, calls := newMockSlack(t)
	path := filepath.Join(t.TempDir(), "report.csv")
	if err := os.WriteFile(path, []byte("Host,Active Threats,Active Profiles,Active Classes\n"), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	err := n.Notify(context.Background(), RunReport{RunID: "run-2", Mode: "active-only", Summary: "Summary", CSVPath: path})
	if err == nil {
		t.Fatal("expected upload error from mock")
	}
	if len(calls.methods) < 2 || calls.methods[0] != "chat.postMessage" || calls.methods[1] != "files.getUploadURLExternal" {
		t.Fatalf("unexpected call order: %v", calls.methods)
	}
}

func TestNotifySkipsEmptyCSV(t *testing.T) {
	n, calls := newMockSlack(t)
	path := filepath.Join(t.TempDir(), "empty.csv")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	if err := n.Notify(context.Background(), RunReport{RunID: "run-3", CSVPath: path}); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if len(calls.methods) != 1 {
		t.Fatalf("expected only the summary post, got %v", calls.methods)
	}
}

func TestFormatRunMessage(t *testing.T) {
	got := FormatRunMessage(RunReport{RunID: "abc", Mode: "full", Summary: "Summary: Total = 1", Invalid: 2})
	want := "Threat report run abc (mode: full)\nSummary: Total = 1\nSkipped 2 invalid input lines."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
