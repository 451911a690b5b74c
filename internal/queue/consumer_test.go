package queue

import (
    "encoding/json"
    "os"
    "path/filepath"
    "strings"
    "testing"
)

func TestHandleMessageAppendsLines(t *testing.T) {
    t.Parallel()
    dir := filepath.Join(t.TempDir(), "logs")

    events := []LiveEvent{
        {Type: TypeSessionStarted, EventID: 7, SessionID: "s-1", RoomID: "event_7_1", ProviderBacked: true, ActorID: 3, OccurredAt: "2026-01-02T15:04:05Z"},
        {Type: TypePhaseChanged, EventID: 7, Phase: "LIVE", Status: "LIVE", ActorID: 3, OccurredAt: "2026-01-02T15:04:05Z"},
    }
    for _, ev := range events {
        body, err := json.Marshal(ev)
        if err != nil {
            t.Fatalf("marshal: %v", err)
        }
        if err := handleMessage(dir, body); err != nil {
            t.Fatalf("expected no error, got %v", err)
        }
    }

    raw, err := os.ReadFile(filepath.Join(dir, "live.log"))
    if err != nil {
        t.Fatalf("read log: %v", err)
    }
    lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
    if len(lines) != 2 {
        t.Fatalf("expected 2 lines, got %d: %q", len(lines), raw)
    }
    if !strings.Contains(lines[0], "Session started") || !strings.Contains(lines[0], `room="event_7_1"`) {
        t.Fatalf("unexpected first line %q", lines[0])
    }
    if !strings.Contains(lines[1], "phase=LIVE") {
        t.Fatalf("unexpected second line %q", lines[1])
    }
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
    t.Parallel()
    dir := t.TempDir()

    if err := handleMessage(dir, []byte("not json")); err == nil {
        t.Fatal("expected error for invalid json")
    }
    if err := handleMessage(dir, []byte(`{"event_id":1}`)); err == nil {
        t.Fatal("expected error for missing type")
    }
    if _, err := os.Stat(filepath.Join(dir, "live.log")); !os.IsNotExist(err) {
        t.Fatalf("expected no log file, stat err = %v", err)
    }
}
