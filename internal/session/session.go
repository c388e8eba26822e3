package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"standupboard/internal/domain"
)

const (
	// SlotKeyPrefix prefixes the durable slot of a dashboard browser.
	SlotKeyPrefix = "telegram-user:"
	// UserKeyPrefix prefixes the durable slot of a Telegram user ID.
	UserKeyPrefix = "telegram-user-id:"
)

// Store keeps the current session in a durable slot.
type Store interface {
	Load(ctx context.Context) (domain.Session, bool)
	Save(ctx context.Context, s domain.Session) error
	Clear(ctx context.Context) error
}

// KV is the durable key-value storage a KVStore is backed by.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// KVStore is a Store bound to a single key of a KV.
type KVStore struct {
	kv  KV
	key string
	log *slog.Logger
}

var _ Store = (*KVStore)(nil)

func NewKVStore(kv KV, key string, log *slog.Logger) *KVStore {
	return &KVStore{kv: kv, key: key, log: log}
}

func SlotKey(slotID string) string {
	return SlotKeyPrefix + strings.TrimSpace(slotID)
}

func UserKey(userID int64) string {
	return UserKeyPrefix + strconv.FormatInt(userID, 10)
}

func (s *KVStore) Load(ctx context.Context) (domain.Session, bool) {
	payload, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		s.log.WarnContext(ctx, "Failed to read stored session",
			"error", err,
			"key", s.key)

		return domain.Session{}, false
	}
	if !ok {
		return domain.Session{}, false
	}

	session, err := Parse(payload)
	if err != nil {
		s.log.WarnContext(ctx, "Stored session is malformed",
			"error", err,
			"key", s.key,
			"payloadLen", len(payload))

		return domain.Session{}, false
	}

	return session, true
}

func (s *KVStore) Save(ctx context.Context, session domain.Session) error {
	if len(session.Payload) == 0 {
		return errors.New("session payload is empty")
	}

	if err := s.kv.Put(ctx, s.key, session.Payload); err != nil {
		return fmt.Errorf("put session: %w", err)
	}

	return nil
}

func (s *KVStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// Parse decodes a login payload into a session. The payload is kept verbatim.
func Parse(payload []byte) (domain.Session, error) {
	var identity domain.Identity
	if err := json.Unmarshal(payload, &identity); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal identity: %w", err)
	}

	if identity.ID == 0 {
		return domain.Session{}, errors.New("identity ID is missing")
	}

	return domain.Session{
		Identity: identity,
		Payload:  json.RawMessage(append([]byte(nil), payload...)),
	}, nil
}

// Resolve returns the authentication state of the store's slot.
// Outside of production a missing session resolves to the demo session.
func Resolve(ctx context.Context, store Store, production bool) domain.Auth {
	if session, ok := store.Load(ctx); ok {
		return domain.LoggedIn{Session: session}
	}

	if !production {
		return domain.LoggedIn{Session: DemoSession()}
	}

	return domain.LoggedOut{}
}
