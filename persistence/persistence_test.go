package persistence

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestSnapshotKeyNamespacesBySession(t *testing.T) {
	got := snapshotKey("sess-1")
	want := "session:sess-1:snapshot"
	if got != want {
		t.Fatalf("snapshotKey = %q, want %q", got, want)
	}
}

func TestAuditStreamKeyNamespacesBySession(t *testing.T) {
	got := auditStreamKey("sess-1")
	want := "session:sess-1:audit"
	if got != want {
		t.Fatalf("auditStreamKey = %q, want %q", got, want)
	}
}

func TestLeadRoundTripsThroughJSON(t *testing.T) {
	lead := Lead{
		SessionID:    "sess-1",
		CustomerName: "Anita Sharma",
		PhoneNumber:  "+919876543210",
		GoalID:       "lead_capture",
		CreatedAt:    time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(lead)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Lead
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != lead {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, lead)
	}
}

func TestAppointmentRoundTripsThroughJSON(t *testing.T) {
	appt := Appointment{
		SessionID: "sess-2",
		Branch:    "MG Road",
		Date:      "2026-08-01",
		Time:      "11:00",
		CreatedAt: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
	data, err := json.Marshal(appt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Appointment
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got != appt {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, appt)
	}
}

func TestNewRedisStoreFailsFastOnUnreachableServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	_, err := NewRedisStore(ctx, Config{Addr: "127.0.0.1:1"})
	if err == nil {
		t.Fatalf("expected error connecting to an unreachable address")
	}
}
