package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Identity is the Telegram user returned by the login widget.
type Identity struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Username  string `json:"username,omitempty"`
	PhotoURL  string `json:"photo_url,omitempty"`
	AuthDate  int64  `json:"auth_date,omitempty"`
	Hash      string `json:"hash,omitempty"`
}

// Session is an authenticated user together with the raw login payload.
// Payload is sent verbatim as the body of every backend request.
type Session struct {
	Identity Identity
	Payload  json.RawMessage
	Demo     bool
}

// Auth is either LoggedOut or LoggedIn.
type Auth interface {
	isAuth()
}

type LoggedOut struct{}

type LoggedIn struct {
	Session Session
}

func (LoggedOut) isAuth() {}
func (LoggedIn) isAuth()  {}

// SessionOf returns the session carried by auth, if any.
func SessionOf(auth Auth) (Session, bool) {
	in, ok := auth.(LoggedIn)
	if !ok {
		return Session{}, false
	}

	return in.Session, true
}

// GroupID identifies a group. Backends send it either as a JSON string or a number.
type GroupID string

func (id *GroupID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("unmarshal group ID string: %w", err)
		}
		*id = GroupID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshal group ID number: %w", err)
	}
	*id = GroupID(n.String())

	return nil
}

// Int64 returns the numeric chat ID when the group ID is numeric.
func (id GroupID) Int64() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}

	return n, true
}

type GroupFeed struct {
	ID      GroupID
	Name    string
	Updates []UpdateRecord
}

type UpdateRecord struct {
	Message   string
	FilePath  string
	Kind      MediaKind
	CreatedAt time.Time
}
