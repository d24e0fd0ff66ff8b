package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"lumochat/internal/app/bus"
	"lumochat/internal/app/media"
	"lumochat/internal/app/protocol"
	"lumochat/internal/app/session"
	"lumochat/internal/configs"
	"lumochat/internal/pkg/errs"
)

type fakeLink struct {
	mu     sync.Mutex
	open   bool
	frames []string
}

func (f *fakeLink) Send(frame string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.open {
		return errors.New("closed")
	}
	f.frames = append(f.frames, frame)
	return nil
}

func (f *fakeLink) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeLink) setOpen(open bool) {
	f.mu.Lock()
	f.open = open
	f.mu.Unlock()
}

func (f *fakeLink) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return ""
	}
	return f.frames[len(f.frames)-1]
}

type fakeMedia struct {
	url  string
	err  error
	name string
	data string
}

func (f *fakeMedia) Share(_ context.Context, fileName string, _ int64, body io.Reader) (string, error) {
	f.name = fileName
	b, _ := io.ReadAll(body)
	f.data = string(b)
	return f.url, f.err
}

type testEnv struct {
	bus     *bus.Bus
	link    *fakeLink
	session *session.State
	deps    *AppDeps
	handler http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	b := bus.New()
	link := &fakeLink{open: true}
	s := session.New(b, link, "alice", session.WithSurface("http"))

	deps := &AppDeps{
		Session: s,
		Config:  &configs.AppConfig{Environment: "development"},
		Link:    link,
	}

	t.Cleanup(func() {
		s.Close()
		b.Close()
	})

	return &testEnv{bus: b, link: link, session: s, deps: deps, handler: Router(deps)}
}

func (e *testEnv) publish(t *testing.T, op protocol.Operation) {
	t.Helper()
	frame, err := protocol.Encode(op)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	e.bus.Publish(frame)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, r *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)

	var env envelope
	if rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func postJSON(path, body string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func TestHealthReportsTransport(t *testing.T) {
	env := newTestEnv(t)

	_, res := do(t, env.handler, httptest.NewRequest(http.MethodGet, "/health", nil))
	if !strings.Contains(string(res.Data), `"transport":"open"`) {
		t.Fatalf("unexpected health data %s", res.Data)
	}

	env.link.setOpen(false)
	_, res = do(t, env.handler, httptest.NewRequest(http.MethodGet, "/health", nil))
	if !strings.Contains(string(res.Data), `"transport":"closed"`) {
		t.Fatalf("unexpected health data %s", res.Data)
	}
}

func TestGetSession(t *testing.T) {
	env := newTestEnv(t)

	rec, res := do(t, env.handler, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	if rec.Code != http.StatusOK || res.Code != 0 {
		t.Fatalf("status=%d code=%d", rec.Code, res.Code)
	}

	var data struct {
		Identity string `json:"identity"`
		Status   string `json:"status"`
	}
	if err := json.Unmarshal(res.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Identity != "alice" || data.Status != session.StatusRegistered.String() {
		t.Fatalf("unexpected session %+v", data)
	}
}

func TestGetRoster(t *testing.T) {
	env := newTestEnv(t)
	env.publish(t, protocol.Users{Names: []string{"alice", "bob"}})

	_, res := do(t, env.handler, httptest.NewRequest(http.MethodGet, "/api/roster", nil))

	var roster []struct {
		Name      string `json:"name"`
		AvatarURL string `json:"avatarUrl"`
	}
	if err := json.Unmarshal(res.Data, &roster); err != nil {
		t.Fatal(err)
	}
	if len(roster) != 2 || roster[0].Name != "alice" || roster[1].Name != "bob" {
		t.Fatalf("unexpected roster %+v", roster)
	}
	if !strings.HasSuffix(roster[1].AvatarURL, "/bob.svg") {
		t.Fatalf("unexpected avatar %q", roster[1].AvatarURL)
	}
}

func TestListMessagesSince(t *testing.T) {
	env := newTestEnv(t)
	env.publish(t, protocol.Users{Names: []string{"alice", "bob"}})
	env.publish(t, protocol.Message{Chat: protocol.ChatMessage{From: "bob", Body: "hi"}})
	env.publish(t, protocol.Message{Chat: protocol.ChatMessage{From: "carol", Body: "https://x.test/a.png"}})

	type page struct {
		Messages []MessageView `json:"messages"`
		Next     int           `json:"next"`
	}

	_, res := do(t, env.handler, httptest.NewRequest(http.MethodGet, "/api/messages?since=1", nil))
	var p page
	if err := json.Unmarshal(res.Data, &p); err != nil {
		t.Fatal(err)
	}
	if len(p.Messages) != 1 || p.Next != 2 {
		t.Fatalf("unexpected page %+v", p)
	}

	m := p.Messages[0]
	if m.Index != 1 || m.From != "carol" || m.KnownSender || !m.IsImage {
		t.Fatalf("unexpected view %+v", m)
	}

	_, res = do(t, env.handler, httptest.NewRequest(http.MethodGet, "/api/messages?since=10", nil))
	if err := json.Unmarshal(res.Data, &p); err != nil {
		t.Fatal(err)
	}
	if len(p.Messages) != 0 || p.Next != 2 {
		t.Fatalf("unexpected empty page %+v", p)
	}
}

func TestListMessagesRejectsBadSince(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"abc", "-1"} {
		rec, res := do(t, env.handler, httptest.NewRequest(http.MethodGet, "/api/messages?since="+q, nil))
		if rec.Code != http.StatusBadRequest || res.Code != errs.ErrInvalidParams {
			t.Errorf("since=%s: status=%d code=%d", q, rec.Code, res.Code)
		}
	}
}

func TestSubmitMessage(t *testing.T) {
	env := newTestEnv(t)

	rec, res := do(t, env.handler, postJSON("/api/messages", `{"message":"hello"}`))
	if rec.Code != http.StatusOK || res.Code != 0 {
		t.Fatalf("status=%d code=%d", rec.Code, res.Code)
	}
	if got := env.link.last(); got != protocol.EncodeSubmission("hello") {
		t.Fatalf("unexpected frame %q", got)
	}
}

func TestSubmitMessageNotConnectedKeepsDraft(t *testing.T) {
	env := newTestEnv(t)
	env.link.setOpen(false)

	rec, res := do(t, env.handler, postJSON("/api/messages", `{"message":"hello"}`))
	if rec.Code != http.StatusServiceUnavailable || res.Code != errs.ErrNotConnected {
		t.Fatalf("status=%d code=%d", rec.Code, res.Code)
	}
	if !strings.Contains(string(res.Data), `"draft":"hello"`) {
		t.Fatalf("draft missing from %s", res.Data)
	}
	if env.session.Draft() != "hello" {
		t.Fatalf("session draft = %q", env.session.Draft())
	}
}

func TestSubmitMessageValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		code   int
	}{
		{"empty", postJSON("/api/messages", `{"message":"   "}`), http.StatusOK, errs.ErrEmptyMessage},
		{"too long", postJSON("/api/messages", `{"message":"`+strings.Repeat("a", session.MaxContentBytes+1)+`"}`), http.StatusBadRequest, errs.ErrMessageContentTooLong},
		{"bad json", postJSON("/api/messages", `{"message":`), http.StatusBadRequest, errs.ErrInvalidJSONFormat},
		{"unknown field", postJSON("/api/messages", `{"text":"hi"}`), http.StatusBadRequest, errs.ErrInvalidJSONFormat},
		{"extra content", postJSON("/api/messages", `{"message":"a"}{"message":"b"}`), http.StatusBadRequest, errs.ErrExtraContentInBody},
		{"wrong type", httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader("hi")), http.StatusUnsupportedMediaType, errs.ErrUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, res := do(t, env.handler, tt.req)
			if rec.Code != tt.status || res.Code != tt.code {
				t.Fatalf("status=%d code=%d, want %d/%d", rec.Code, res.Code, tt.status, tt.code)
			}
		})
	}
}

func TestSubmitAfterCloseReportsClosed(t *testing.T) {
	env := newTestEnv(t)
	env.session.Close()

	rec, res := do(t, env.handler, postJSON("/api/messages", `{"message":"hello"}`))
	if rec.Code != http.StatusGone || res.Code != errs.ErrSessionClosed {
		t.Fatalf("status=%d code=%d", rec.Code, res.Code)
	}
}

func multipartRequest(t *testing.T, field, fileName, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, fileName)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	r := httptest.NewRequest(http.MethodPost, "/api/media", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestShareMediaDisabled(t *testing.T) {
	env := newTestEnv(t)

	rec, res := do(t, env.handler, multipartRequest(t, "file", "cat.gif", "GIF8"))
	if rec.Code != http.StatusNotImplemented || res.Code != errs.ErrMediaDisabled {
		t.Fatalf("status=%d code=%d", rec.Code, res.Code)
	}
}

func TestShareMediaPostsURL(t *testing.T) {
	env := newTestEnv(t)
	fm := &fakeMedia{url: "https://cdn.test/ab12CD/x.gif"}
	env.deps.Media = fm

	rec, res := do(t, env.handler, multipartRequest(t, "file", "cat.gif", "GIF8"))
	if rec.Code != http.StatusOK || res.Code != 0 {
		t.Fatalf("status=%d code=%d", rec.Code, res.Code)
	}
	if fm.name != "cat.gif" || fm.data != "GIF8" {
		t.Fatalf("media received name=%q data=%q", fm.name, fm.data)
	}
	if got := env.link.last(); got != protocol.EncodeSubmission(fm.url) {
		t.Fatalf("unexpected frame %q", got)
	}
}

func TestShareMediaErrors(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{media.ErrFileTypeInvalid, errs.ErrFileTypeInvalid},
		{media.ErrFileSizeInvalid, errs.ErrFileSizeTooLarge},
		{media.ErrStorageFailed, errs.ErrFileStorageFailed},
	}

	for _, tt := range tests {
		env := newTestEnv(t)
		env.deps.Media = &fakeMedia{err: tt.err}

		_, res := do(t, env.handler, multipartRequest(t, "file", "cat.gif", "GIF8"))
		if res.Code != tt.code {
			t.Errorf("%v: code=%d, want %d", tt.err, res.Code, tt.code)
		}
	}
}

func TestShareMediaMissingFile(t *testing.T) {
	env := newTestEnv(t)
	env.deps.Media = &fakeMedia{url: "https://cdn.test/x.gif"}

	_, res := do(t, env.handler, multipartRequest(t, "other", "cat.gif", "GIF8"))
	if res.Code != errs.ErrInvalidParams {
		t.Fatalf("code=%d", res.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.publish(t, protocol.Users{Names: []string{"alice"}})

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/metrics", nil))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "bus.published") {
		t.Fatalf("unexpected metrics response %d %s", rec.Code, rec.Body.String())
	}
}

func TestPostLimiterApplies(t *testing.T) {
	env := newTestEnv(t)
	env.deps.PostLimiter = NewPostLimiter()
	defer env.deps.PostLimiter.Stop()
	h := Router(env.deps)

	limited := false
	for range PostBurst + 1 {
		rec, _ := do(t, h, postJSON("/api/messages", `{"message":"hi"}`))
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatal("POST burst was not limited")
	}

	rec, _ := do(t, h, httptest.NewRequest(http.MethodGet, "/api/roster", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET was limited: %d", rec.Code)
	}
}
