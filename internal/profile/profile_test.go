package profile

import (
	"context"
	"testing"

	pebblestore "github.com/aboly3304/sos-bot/internal/storage/pebble"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open pebble: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestRegistrationRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	in := Registration{UserID: 42, Username: "u", FirstName: "F", LastName: "L", ChatID: -100}
	if err := s.PutRegistration(ctx, in); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.GetRegistration(ctx, 42)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Username != "u" || got.ChatID != -100 || got.AtMs == 0 {
		t.Fatalf("unexpected registration: %+v", got)
	}

	if _, ok, err := s.GetRegistration(ctx, 43); err != nil || ok {
		t.Fatalf("unknown user: ok=%v err=%v", ok, err)
	}
}

func TestSupplementaryInfoOrderedByLabel(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, f := range []Field{
		{Label: "blood type", Value: "O+"},
		{Label: "allergies", Value: "penicillin"},
	} {
		if err := s.PutInfo(ctx, 42, f.Label, f.Value); err != nil {
			t.Fatalf("put info: %v", err)
		}
	}
	// overwrite keeps one value per label
	if err := s.PutInfo(ctx, 42, "blood type", "AB-"); err != nil {
		t.Fatalf("put info: %v", err)
	}

	info, err := s.SupplementaryInfo(ctx, 42)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(info) != 2 {
		t.Fatalf("want 2 fields, got %d: %v", len(info), info)
	}
	if info[0].Label != "allergies" || info[1].Value != "AB-" {
		t.Fatalf("unexpected info: %v", info)
	}
}

func TestSupplementaryInfoAbsent(t *testing.T) {
	s := newTestStore(t)
	info, err := s.SupplementaryInfo(context.Background(), 7)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(info) != 0 {
		t.Fatalf("want nothing on file, got %v", info)
	}
}

func TestInfoIsolatedPerUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.PutInfo(ctx, 1, "note", "a"); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutInfo(ctx, 2, "note", "b"); err != nil {
		t.Fatalf("put: %v", err)
	}
	info, err := s.SupplementaryInfo(ctx, 1)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if len(info) != 1 || info[0].Value != "a" {
		t.Fatalf("cross-user leak: %v", info)
	}
}
