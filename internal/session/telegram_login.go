package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"standupboard/internal/domain"
)

var (
	ErrBadHash = errors.New("login hash mismatch")
	ErrExpired = errors.New("login is expired")
)

// VerifyLogin checks a Telegram login widget callback and builds the session it describes.
// See https://core.telegram.org/widgets/login#checking-authorization.
func VerifyLogin(values url.Values, botToken string, now time.Time, maxAge time.Duration) (domain.Session, error) {
	hash := strings.TrimSpace(values.Get("hash"))
	if hash == "" {
		return domain.Session{}, ErrBadHash
	}

	if !hmac.Equal([]byte(strings.ToLower(hash)), []byte(loginHash(values, botToken))) {
		return domain.Session{}, ErrBadHash
	}

	id, err := strconv.ParseInt(values.Get("id"), 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse id: %w", err)
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return domain.Session{}, fmt.Errorf("parse auth_date: %w", err)
	}

	if maxAge > 0 && now.Sub(time.Unix(authDate, 0)) > maxAge {
		return domain.Session{}, ErrExpired
	}

	identity := domain.Identity{
		ID:        id,
		FirstName: values.Get("first_name"),
		LastName:  values.Get("last_name"),
		Username:  values.Get("username"),
		PhotoURL:  values.Get("photo_url"),
		AuthDate:  authDate,
		Hash:      hash,
	}

	payload, err := json.Marshal(identity)
	if err != nil {
		return domain.Session{}, fmt.Errorf("marshal identity: %w", err)
	}

	return domain.Session{Identity: identity, Payload: payload}, nil
}

func loginHash(values url.Values, botToken string) string {
	keys := make([]string, 0, len(values))
	for key := range values {
		if key == "hash" {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+values.Get(key))
	}

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))

	return hex.EncodeToString(mac.Sum(nil))
}
