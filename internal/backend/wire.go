package backend

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"standupboard/internal/domain"
)

type wireGroup struct {
	ID      domain.GroupID `json:"id"`
	Name    string         `json:"name"`
	Updates []wireUpdate   `json:"updates"`
}

type wireUpdate struct {
	Message   string           `json:"message"`
	FilePath  string           `json:"file_path"`
	Type      domain.MediaKind `json:"type"`
	CreatedAt json.RawMessage  `json:"createdAt"`
}

// toGroupFeeds keeps records with unreadable timestamps (zero time) and reports them in the error.
func toGroupFeeds(groups []wireGroup, loc *time.Location) ([]domain.GroupFeed, error) {
	feeds := make([]domain.GroupFeed, 0, len(groups))
	var errs []error

	for _, g := range groups {
		records := make([]domain.UpdateRecord, 0, len(g.Updates))

		for _, u := range g.Updates {
			createdAt, err := parseTimestamp(u.CreatedAt)
			if err != nil {
				errs = append(errs, fmt.Errorf("parse createdAt (groupID = %s): %w", g.ID, err))
			}

			records = append(records, domain.UpdateRecord{
				Message:   u.Message,
				FilePath:  u.FilePath,
				Kind:      u.Type,
				CreatedAt: createdAt.In(loc),
			})
		}

		feeds = append(feeds, domain.GroupFeed{
			ID:      g.ID,
			Name:    strings.TrimSpace(g.Name),
			Updates: records,
		})
	}

	return feeds, errors.Join(errs...)
}

// parseTimestamp accepts an RFC 3339 string or unix milliseconds.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, errors.New("timestamp is missing")
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, fmt.Errorf("unmarshal string: %w", err)
		}

		t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
		if err != nil {
			return time.Time{}, fmt.Errorf("parse RFC 3339: %w", err)
		}

		return t, nil
	}

	var ms int64
	if err := json.Unmarshal(raw, &ms); err != nil {
		return time.Time{}, fmt.Errorf("unmarshal unix milliseconds: %w", err)
	}

	return time.UnixMilli(ms), nil
}
