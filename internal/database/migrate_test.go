package database

import (
	"strings"
	"testing"
)

func TestMigrationNamesOrdered(t *testing.T) {
	names, err := migrationNames()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(names) < 2 {
		t.Fatalf("expected embedded migrations, got %v", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("migrations out of order: %v", names)
		}
	}
}

func TestLiveSchemaGuardsActiveSession(t *testing.T) {
	body, err := migrationFiles.ReadFile("migrations/0002_live.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	sql := string(body)
	for _, want := range []string{
		"active_event_id    BIGINT UNSIGNED AS (IF(active = 1, event_id, NULL)) STORED",
		"UNIQUE KEY uq_sessions_active_event (active_event_id)",
	} {
		if !strings.Contains(sql, want) {
			t.Fatalf("expected schema to contain %q", want)
		}
	}
}
