// Package backend fetches group updates from the standup bot backend.
package backend

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"standupboard/internal/domain"

	"golang.org/x/sync/singleflight"
)

const (
	UpdatesPath = "/api/updates"
	GroupsPath  = "/api/groups"

	maxErrorBodyBytes = 512
)

var ErrStatus = errors.New("unexpected status")

// Client implements both fetch contracts over HTTP. Every request carries the
// session payload as its JSON body.
type Client struct {
	baseURL    string
	httpClient *http.Client
	loc        *time.Location
	group      singleflight.Group
	log        *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, loc *time.Location, log *slog.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}

	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		loc:        loc,
		log:        log,
	}
}

func (c *Client) FetchGroupsWithUpdates(ctx context.Context, s domain.Session) ([]domain.GroupFeed, error) {
	v, err := c.dedup(ctx, UpdatesPath, s, func(body []byte) (any, error) {
		var groups []wireGroup
		if err := json.Unmarshal(body, &groups); err != nil {
			return nil, fmt.Errorf("unmarshal groups: %w", err)
		}

		feeds, err := toGroupFeeds(groups, c.loc)
		if err != nil {
			c.log.WarnContext(ctx, "Some updates have unreadable timestamps",
				"error", err,
				"userID", s.Identity.ID)
		}

		return feeds, nil
	})
	if err != nil {
		return nil, err
	}

	groups, _ := v.([]domain.GroupFeed)
	return groups, nil
}

func (c *Client) FetchGroupNames(ctx context.Context, s domain.Session) ([]string, error) {
	v, err := c.dedup(ctx, GroupsPath, s, func(body []byte) (any, error) {
		var names []string
		if err := json.Unmarshal(body, &names); err != nil {
			return nil, fmt.Errorf("unmarshal group names: %w", err)
		}

		return names, nil
	})
	if err != nil {
		return nil, err
	}

	names, _ := v.([]string)
	return names, nil
}

// dedup shares one in-flight request between identical concurrent fetches.
func (c *Client) dedup(
	ctx context.Context,
	path string,
	s domain.Session,
	decode func(body []byte) (any, error),
) (any, error) {
	sum := sha256.Sum256(s.Payload)
	key := path + "|" + hex.EncodeToString(sum[:])

	v, err, shared := c.group.Do(key, func() (any, error) {
		body, err := c.post(ctx, path, s.Payload)
		if err != nil {
			return nil, err
		}

		return decode(body)
	})
	if shared {
		c.log.DebugContext(ctx, "Backend request is shared",
			"path", path,
			"userID", s.Identity.ID)
	}

	return v, err
}

func (c *Client) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req) //nolint:gosec // Configured backend URL
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		if err = resp.Body.Close(); err != nil {
			c.log.ErrorContext(ctx, "Failed to close response body",
				"error", err,
				"url", url,
				"operation", "post")
		}
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return nil, fmt.Errorf("do request (url = %s): %w: %d %s",
			url, ErrStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}
