package session_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"standupboard/internal/domain"
	"standupboard/internal/session"
)

type memoryKV struct {
	values map[string][]byte
	getErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{values: make(map[string][]byte)}
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}

	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memoryKV) Put(_ context.Context, key string, value []byte) error {
	m.values[key] = value
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestKVStoreSaveLoadRoundTrip(t *testing.T) {
	kv := newMemoryKV()
	store := session.NewKVStore(kv, session.SlotKey("abc"), discardLogger())
	ctx := context.Background()

	payload := []byte(`{"id":42,"first_name":"Ann","photo_url":"https://t.me/i/ann.jpg","auth_date":1700000000,"hash":"ff"}`)
	s, err := session.Parse(payload)
	if err != nil {
		t.Fatalf("failed to parse payload: %v", err)
	}

	if err = store.Save(ctx, s); err != nil {
		t.Fatalf("failed to save: %v", err)
	}

	if got := string(kv.values["telegram-user:abc"]); got != string(payload) {
		t.Fatalf("expected payload to be stored verbatim, got %s", got)
	}

	loaded, ok := store.Load(ctx)
	if !ok {
		t.Fatalf("expected stored session to load")
	}
	if loaded.Identity.FirstName != "Ann" || loaded.Identity.PhotoURL != "https://t.me/i/ann.jpg" {
		t.Fatalf("unexpected identity: %+v", loaded.Identity)
	}
}

func TestKVStoreLoadMalformed(t *testing.T) {
	for _, payload := range []string{"{not json", `{"first_name":"NoID"}`, `[]`, ""} {
		kv := newMemoryKV()
		kv.values["k"] = []byte(payload)
		store := session.NewKVStore(kv, "k", discardLogger())

		if _, ok := store.Load(context.Background()); ok {
			t.Fatalf("expected malformed payload %q to load as absent", payload)
		}
	}
}

func TestKVStoreLoadStorageError(t *testing.T) {
	kv := newMemoryKV()
	kv.getErr = errors.New("disk is gone")
	store := session.NewKVStore(kv, "k", discardLogger())

	if _, ok := store.Load(context.Background()); ok {
		t.Fatalf("expected storage error to load as absent")
	}
}

func TestKVStoreClear(t *testing.T) {
	kv := newMemoryKV()
	kv.values["k"] = []byte(`{"id":1}`)
	store := session.NewKVStore(kv, "k", discardLogger())

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("failed to clear: %v", err)
	}
	if _, ok := store.Load(context.Background()); ok {
		t.Fatalf("expected cleared session to be absent")
	}
}

func TestKVStoreSaveRejectsEmptyPayload(t *testing.T) {
	store := session.NewKVStore(newMemoryKV(), "k", discardLogger())

	if err := store.Save(context.Background(), domain.Session{}); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	empty := session.NewKVStore(newMemoryKV(), "k", discardLogger())

	if _, ok := session.Resolve(ctx, empty, true).(domain.LoggedOut); !ok {
		t.Fatalf("expected logged out in production without stored session")
	}

	demo, ok := session.Resolve(ctx, empty, false).(domain.LoggedIn)
	if !ok || !demo.Session.Demo {
		t.Fatalf("expected demo session outside of production")
	}

	kv := newMemoryKV()
	kv.values["k"] = []byte(`{"id":7,"first_name":"Bob"}`)
	stored := session.NewKVStore(kv, "k", discardLogger())

	in, ok := session.Resolve(ctx, stored, true).(domain.LoggedIn)
	if !ok || in.Session.Demo || in.Session.Identity.ID != 7 {
		t.Fatalf("expected stored session, got %+v", in)
	}
}

func TestDemoSessionParses(t *testing.T) {
	demo := session.DemoSession()

	parsed, err := session.Parse(demo.Payload)
	if err != nil {
		t.Fatalf("expected demo payload to parse: %v", err)
	}
	if parsed.Identity.PhotoURL == "" || parsed.Identity.FirstName == "" {
		t.Fatalf("expected demo identity to have photo and first name: %+v", parsed.Identity)
	}
}
