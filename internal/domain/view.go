package domain

import (
	"encoding/json"
	"time"
)

type MessageView struct {
	Text  string   `json:"text"`
	Links []string `json:"links,omitempty"`
}

func (m MessageView) IsEmpty() bool {
	return m.Text == ""
}

type DisplayUpdate struct {
	FormattedDate string      `json:"date"`
	Message       MessageView `json:"message"`
	Media         MediaView   `json:"media"`
	CreatedAt     time.Time   `json:"-"`
}

type DisplayGroup struct {
	ID      GroupID
	Name    string
	Updates []DisplayUpdate
}

type Status int

const (
	StatusLoggedOut Status = iota
	StatusLoading
	StatusFailed
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusLoggedOut:
		return "logged_out"
	case StatusLoading:
		return "loading"
	case StatusFailed:
		return "failed"
	case StatusReady:
		return "ready"
	default:
		return "unknown"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// GroupSection is one group of the rendered view: its total size and the current page.
type GroupSection struct {
	ID           GroupID         `json:"id"`
	Name         string          `json:"name"`
	TotalUpdates int             `json:"totalUpdates"`
	Page         int             `json:"page"`
	PageCount    int             `json:"pageCount"`
	PageSize     int             `json:"pageSize"`
	Updates      []DisplayUpdate `json:"updates"`
}

type ViewModel struct {
	Status     Status         `json:"status"`
	Identity   *Identity      `json:"identity,omitempty"`
	Demo       bool           `json:"demo,omitempty"`
	GroupNames []string       `json:"groupNames"`
	Groups     []GroupSection `json:"groups"`
}
