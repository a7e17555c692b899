package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/RichardoC/pad-chat/internal/store"
)

var chatIDPattern = regexp.MustCompile(`chat-\d+`)

type fakeAPI struct {
	srv     *httptest.Server
	streams atomic.Int32
	titles  atomic.Int32
	auth    atomic.Value
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.auth.Store(r.Header.Get("Authorization"))
		var req struct {
			Model  string `json:"model"`
			Stream bool   `json:"stream"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		if req.Stream {
			f.streams.Add(1)
			w.Header().Set("Content-Type", "text/event-stream")
			_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
			_, _ = io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\" there\"}}]}\n\n")
			_, _ = io.WriteString(w, "data: [DONE]\n\n")
			return
		}
		f.titles.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"t","object":"chat.completion","created":1,"model":"`+req.Model+`",
			"choices":[{"index":0,"message":{"role":"assistant","content":"Greeting Exchange"},"finish_reason":"stop"}],
			"usage":{"prompt_tokens":1,"completion_tokens":1,"total_tokens":2}}`)
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func setupEnv(t *testing.T) *fakeAPI {
	t.Helper()
	api := newFakeAPI(t)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("PAD_CHAT_API_BASE_URL", api.srv.URL+"/v1")
	return api
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, closeApp := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	require.NoError(t, closeApp())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	require.NoError(t, err, out)
	return out
}

func TestCommands_ConversationLifecycle(t *testing.T) {
	api := setupEnv(t)

	mustRun(t, "key", "  sk-test  ")
	out := mustRun(t, "send", "Hello")
	assert.Contains(t, out, "Hi there")
	assert.Equal(t, "Bearer sk-test", api.auth.Load())
	assert.EqualValues(t, 1, api.titles.Load())

	out = mustRun(t, "list")
	assert.Contains(t, out, store.LabelToday)
	assert.Contains(t, out, "Greeting Exchange")
	id := chatIDPattern.FindString(out)
	require.NotEmpty(t, id)

	out = mustRun(t, "show")
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "Hi there")

	mustRun(t, "send", "Again")
	assert.EqualValues(t, 2, api.streams.Load())
	assert.EqualValues(t, 1, api.titles.Load(), "only new conversations get a title")

	path := filepath.Join(t.TempDir(), "chat.json")
	out = mustRun(t, "export", "--format", "json", "-o", path)
	assert.Contains(t, out, "Exported "+id)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var conv models.Conversation
	require.NoError(t, json.Unmarshal(data, &conv))
	assert.Equal(t, id, conv.ID)
	assert.Len(t, conv.Messages, 4)

	_, err = run(t, "rename", id, "   ")
	assert.Error(t, err)
	mustRun(t, "rename", id, "Small", "talk")
	assert.Contains(t, mustRun(t, "export", "--format", "md"), "# Small talk")

	mustRun(t, "new")
	_, err = run(t, "show")
	assert.ErrorIs(t, err, errNoActive)

	_, err = run(t, "switch", "chat-missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
	mustRun(t, "switch", id)

	mustRun(t, "delete", id)
	assert.Contains(t, mustRun(t, "list"), "No conversations yet.")
	_, err = run(t, "delete", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCommands_SendNewStartsConversation(t *testing.T) {
	setupEnv(t)

	mustRun(t, "send", "one")
	mustRun(t, "send", "--new", "two")

	ids := chatIDPattern.FindAllString(mustRun(t, "list"), -1)
	assert.Len(t, ids, 2)
}

func TestCommands_Errors(t *testing.T) {
	setupEnv(t)

	_, err := run(t, "export", "--format", "pdf")
	assert.ErrorContains(t, err, "unsupported format")

	_, err = run(t, "copy")
	assert.ErrorIs(t, err, errNoActive)

	_, err = run(t, "send")
	assert.Error(t, err)

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.toml"), "list")
	assert.Error(t, err)
}

func TestCommands_APIFailureKeepsUserTurn(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()
	t.Setenv("PAD_CHAT_API_BASE_URL", srv.URL)

	_, err := run(t, "send", "Hello")
	require.ErrorContains(t, err, "401")

	out := mustRun(t, "list")
	assert.Contains(t, out, models.PlaceholderTitle)

	var conv models.Conversation
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, "export", "--format", "json")), &conv))
	assert.Equal(t, []models.Message{models.TextMessage(models.RoleUser, "Hello")}, conv.Messages)
}

func newTestREPL(t *testing.T) (*repl, *bytes.Buffer) {
	t.Helper()
	setupEnv(t)
	var out bytes.Buffer
	opts := &rootOptions{plain: true}
	a, err := newApp(opts, &out)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return &repl{app: a, opts: opts}, &out
}

func TestREPL_Commands(t *testing.T) {
	r, out := newTestREPL(t)
	ctx := context.Background()

	more, err := r.handle(ctx, "/help")
	require.NoError(t, err)
	assert.True(t, more)
	assert.Contains(t, out.String(), "/switch <id>")

	_, err = r.handle(ctx, "/bogus")
	assert.ErrorContains(t, err, "unknown command")

	_, err = r.handle(ctx, "/rename Foo")
	assert.ErrorIs(t, err, errNoActive)

	_, err = r.handle(ctx, "Hello")
	require.NoError(t, err)
	first := r.sess.ActiveID
	require.NotEmpty(t, first)
	assert.Len(t, r.sess.Messages, 2)

	_, err = r.handle(ctx, "/rename   ")
	assert.Error(t, err)
	_, err = r.handle(ctx, "/rename Foo")
	require.NoError(t, err)

	_, err = r.handle(ctx, "/copy x")
	assert.ErrorContains(t, err, "usage")

	_, err = r.handle(ctx, "/new")
	require.NoError(t, err)
	assert.True(t, r.sess.Pending())

	_, err = r.handle(ctx, "/switch chat-missing")
	assert.Error(t, err)
	assert.True(t, r.sess.Pending())

	_, err = r.handle(ctx, "/switch "+first)
	require.NoError(t, err)
	assert.Equal(t, first, r.sess.ActiveID)
	assert.Len(t, r.sess.Messages, 2)

	out.Reset()
	_, err = r.handle(ctx, "/list")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Foo")

	_, err = r.handle(ctx, "/delete")
	require.NoError(t, err)
	assert.True(t, r.sess.Pending())

	more, err = r.handle(ctx, "/quit")
	require.NoError(t, err)
	assert.False(t, more)
}

func TestREPL_AttachSkipsNonImages(t *testing.T) {
	r, out := newTestREPL(t)

	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("plain text\n"), 0o644))

	_, err := r.handle(context.Background(), "/attach "+path)
	require.NoError(t, err)
	assert.Empty(t, r.attached)
	assert.True(t, strings.Contains(out.String(), "only images can be attached"))

	_, err = r.handle(context.Background(), "/attach")
	assert.ErrorContains(t, err, "usage")

	_, err = r.handle(context.Background(), "/detach")
	require.NoError(t, err)
}
