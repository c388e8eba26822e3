package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"standupboard/internal/composer"
	"standupboard/internal/domain"
	"standupboard/internal/session"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123:secret"

type memoryKV struct {
	mu     sync.Mutex
	values map[string][]byte
}

func (m *memoryKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.values[key]
	return value, ok, nil
}

func (m *memoryKV) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
	return nil
}

func (m *memoryKV) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.values))
	for key := range m.values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	return keys
}

type stubFetcher struct {
	groups    []domain.GroupFeed
	names     []string
	groupsErr error
}

func (s *stubFetcher) FetchGroupsWithUpdates(context.Context, domain.Session) ([]domain.GroupFeed, error) {
	return s.groups, s.groupsErr
}

func (s *stubFetcher) FetchGroupNames(context.Context, domain.Session) ([]string, error) {
	return s.names, nil
}

type testEnv struct {
	server *httptest.Server
	client *http.Client
	kv     *memoryKV
}

func newTestEnv(t *testing.T, fetcher composer.Fetcher, opts Options) *testEnv {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	kv := &memoryKV{values: make(map[string][]byte)}

	s, err := New(kv, composer.New(fetcher, 3, log), composer.NewCache(16, time.Hour), opts, log)
	require.NoError(t, err)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{server: ts, client: client, kv: kv}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()

	resp, err := e.client.Get(e.server.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) *http.Response {
	t.Helper()

	resp, err := e.client.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func (e *testEnv) view(t *testing.T) domain.ViewModel {
	t.Helper()

	resp := e.get(t, "/api/view?wait=true")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vm struct {
		Status   string `json:"status"`
		Demo     bool   `json:"demo"`
		Identity *struct {
			ID int64 `json:"id"`
		} `json:"identity"`
		GroupNames []string `json:"groupNames"`
		Groups     []struct {
			ID        domain.GroupID `json:"id"`
			Page      int            `json:"page"`
			PageCount int            `json:"pageCount"`
			Updates   []struct {
				Date    string `json:"date"`
				Message struct {
					Text string `json:"text"`
				} `json:"message"`
			} `json:"updates"`
		} `json:"groups"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&vm))

	out := domain.ViewModel{Demo: vm.Demo, GroupNames: vm.GroupNames}
	switch vm.Status {
	case "ready":
		out.Status = domain.StatusReady
	case "failed":
		out.Status = domain.StatusFailed
	case "loading":
		out.Status = domain.StatusLoading
	default:
		out.Status = domain.StatusLoggedOut
	}
	if vm.Identity != nil {
		out.Identity = &domain.Identity{ID: vm.Identity.ID}
	}
	for _, g := range vm.Groups {
		section := domain.GroupSection{ID: g.ID, Page: g.Page, PageCount: g.PageCount}
		for _, u := range g.Updates {
			section.Updates = append(section.Updates, domain.DisplayUpdate{
				FormattedDate: u.Date,
				Message:       domain.MessageView{Text: u.Message.Text},
			})
		}
		out.Groups = append(out.Groups, section)
	}

	return out
}

func (e *testEnv) document(t *testing.T, path string) *goquery.Document {
	t.Helper()

	resp := e.get(t, path)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	require.NoError(t, err)

	return doc
}

func teamFetcher() *stubFetcher {
	records := make([]domain.UpdateRecord, 0, 5)
	for i := range 5 {
		records = append(records, domain.UpdateRecord{
			Message:   fmt.Sprintf("update %d", i+1),
			Kind:      domain.MediaText,
			CreatedAt: time.Date(2024, 1, 1+i, 9, 0, 0, 0, time.UTC),
		})
	}
	records[0].FilePath = "https://files.example.com/p.jpg"
	records[0].Kind = domain.MediaPhoto

	return &stubFetcher{
		groups: []domain.GroupFeed{
			{ID: "A", Name: "Alpha", Updates: records},
			{ID: "B", Name: "Beta", Updates: records[:2]},
		},
		names: []string{"Alpha", "Beta"},
	}
}

func signedLogin(t *testing.T, id int64, authDate time.Time) url.Values {
	t.Helper()

	values := url.Values{
		"id":         {strconv.FormatInt(id, 10)},
		"first_name": {"Ann"},
		"username":   {"ann"},
		"photo_url":  {"https://t.me/i/ann.jpg"},
		"auth_date":  {strconv.FormatInt(authDate.Unix(), 10)},
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, key+"="+values.Get(key))
	}

	secret := sha256.Sum256([]byte(testBotToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(strings.Join(lines, "\n")))
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))

	return values
}

func TestHomeLoggedOutInProduction(t *testing.T) {
	env := newTestEnv(t, teamFetcher(), Options{BotName: "stood_bot", BotToken: testBotToken, Production: true})

	doc := env.document(t, "/")

	assert.Equal(t, pageTitle, doc.Find("title").Text())
	assert.Equal(t, "stood_bot", doc.Find("script[data-telegram-login]").AttrOr("data-telegram-login", ""))
	assert.Equal(t, "https://t.me/stood_bot", doc.Find("a.code").AttrOr("href", ""))
	assert.Zero(t, doc.Find("details.group").Length())
	assert.Zero(t, doc.Find(".user").Length())

	assert.Equal(t, domain.StatusLoggedOut, env.view(t).Status)
}

func TestHomeDemoSessionOutsideProduction(t *testing.T) {
	env := newTestEnv(t, teamFetcher(), Options{BotName: "stood_bot"})

	vm := env.view(t)
	require.Equal(t, domain.StatusReady, vm.Status)
	assert.True(t, vm.Demo)
	assert.Equal(t, []string{"Alpha", "Beta"}, vm.GroupNames)

	doc := env.document(t, "/")

	assert.Zero(t, doc.Find("script[data-telegram-login]").Length())
	assert.Equal(t, "Demo", strings.TrimSpace(doc.Find(".user .name").Text()))
	assert.Equal(t, "Alpha, Beta", strings.TrimSpace(doc.Find(".user .groups").Text()))

	groups := doc.Find("details.group")
	require.Equal(t, 2, groups.Length())

	alpha := groups.First()
	_, open := alpha.Attr("open")
	assert.True(t, open)
	assert.Equal(t, "Alpha", strings.TrimSpace(alpha.Find("summary .name").Text()))
	assert.Equal(t, "5 updates posted", strings.TrimSpace(alpha.Find("summary .subtitle").Text()))

	codes := alpha.Find("td.message code")
	require.Equal(t, 3, codes.Length())
	assert.Equal(t, "update 1", codes.First().Text())
	assert.Equal(t, 3, alpha.Find("tr.update").Length())
	assert.Equal(t, 2, alpha.Find(".pagination button").Length())
	assert.Equal(t, "Mon Jan 01 2024", strings.TrimSpace(alpha.Find("td.date").First().Text()))
	assert.Equal(t, "https://files.example.com/p.jpg", alpha.Find("td.file img").AttrOr("src", ""))
	assert.Equal(t, "200", alpha.Find("td.file img").AttrOr("height", ""))

	beta := groups.Last()
	assert.Zero(t, beta.Find(".pagination").Length())
}

func TestPageControl(t *testing.T) {
	env := newTestEnv(t, teamFetcher(), Options{})
	env.view(t)

	resp := env.post(t, "/groups/A/page", url.Values{"page": {"1"}})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/#group-A", resp.Header.Get("Location"))

	vm := env.view(t)
	require.Len(t, vm.Groups, 2)
	assert.Equal(t, 1, vm.Groups[0].Page)
	require.Len(t, vm.Groups[0].Updates, 2)
	assert.Equal(t, "update 4", vm.Groups[0].Updates[0].Message.Text)
	assert.Equal(t, 0, vm.Groups[1].Page)

	resp = env.post(t, "/groups/A/page", url.Values{"page": {"-1"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHomeFailureNotice(t *testing.T) {
	fetcher := teamFetcher()
	fetcher.groupsErr = errors.New("backend is down")
	env := newTestEnv(t, fetcher, Options{})

	require.Equal(t, domain.StatusFailed, env.view(t).Status)

	doc := env.document(t, "/")
	assert.Equal(t,
		"Could not load profile. Make sure you message the bot first",
		strings.TrimSpace(doc.Find(".note.error").Text()))
	assert.Zero(t, doc.Find("details.group").Length())
}

func TestTelegramLogin(t *testing.T) {
	env := newTestEnv(t, teamFetcher(), Options{
		BotName:     "stood_bot",
		BotToken:    testBotToken,
		Production:  true,
		LoginMaxAge: time.Hour,
	})

	require.Equal(t, domain.StatusLoggedOut, env.view(t).Status)

	resp := env.get(t, "/auth/telegram?"+signedLogin(t, 42, time.Now()).Encode())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	vm := env.view(t)
	require.Equal(t, domain.StatusReady, vm.Status)
	require.NotNil(t, vm.Identity)
	assert.Equal(t, int64(42), vm.Identity.ID)
	assert.False(t, vm.Demo)

	keys := env.kv.keys()
	require.Len(t, keys, 2)
	assert.Equal(t, session.UserKey(42), keys[0])
	assert.True(t, strings.HasPrefix(keys[1], session.SlotKeyPrefix))
}

func TestTelegramLoginRejected(t *testing.T) {
	env := newTestEnv(t, teamFetcher(), Options{BotToken: testBotToken, Production: true, LoginMaxAge: time.Hour})

	tampered := signedLogin(t, 42, time.Now())
	tampered.Set("id", "43")

	resp := env.get(t, "/auth/telegram?"+tampered.Encode())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.get(t, "/auth/telegram?"+signedLogin(t, 42, time.Now().Add(-2*time.Hour)).Encode())
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Empty(t, env.kv.keys())
}

func TestAtomFeed(t *testing.T) {
	env := newTestEnv(t, teamFetcher(), Options{PublicURL: "https://standup.example.com/"})

	resp := env.get(t, "/groups/A/atom")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/atom+xml")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	atom := string(body)
	assert.Contains(t, atom, "<title>Alpha</title>")
	assert.Contains(t, atom, "https://standup.example.com/#group-A")
	assert.Equal(t, 5, strings.Count(atom, "<entry"))

	resp = env.get(t, "/groups/missing/atom")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSlotCookieIsReused(t *testing.T) {
	env := newTestEnv(t, teamFetcher(), Options{})

	first := env.get(t, "/api/view")
	require.Len(t, first.Cookies(), 1)
	assert.Equal(t, slotCookieName, first.Cookies()[0].Name)

	second := env.get(t, "/api/view")
	assert.Empty(t, second.Cookies())
}
