package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RichardoC/pad-chat/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path          string
	Authorization string
	Body          map[string]interface{}
}

func newFakeAPI(t *testing.T, status int, respond string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Path = r.URL.Path
		captured.Authorization = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &captured.Body)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, respond)
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestStreamCompletion_SendsTranscript(t *testing.T) {
	sse := "data: {\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\ndata: [DONE]\n\n"
	srv, captured := newFakeAPI(t, http.StatusOK, sse)

	svc := New(Config{BaseURL: srv.URL + "/v1/", Model: "gpt-5-chat"}, nil)
	messages := []models.Message{
		models.TextMessage(models.RoleUser, "Hello"),
		{Role: models.RoleUser, Content: models.Parts(
			models.Part{Type: models.PartText, Text: "and this?"},
			models.Part{Type: models.PartImageURL, ImageURL: &models.ImageURL{URL: "http://localhost:8100/files/x.png"}},
		)},
	}

	body, err := svc.StreamCompletion(context.Background(), "sk-test", messages)
	require.NoError(t, err)
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	require.NoError(t, body.Close())
	assert.Equal(t, sse, string(data))

	assert.Equal(t, "/v1/chat/completions", captured.Path)
	assert.Equal(t, "Bearer sk-test", captured.Authorization)
	assert.Equal(t, "gpt-5-chat", captured.Body["model"])
	assert.Equal(t, true, captured.Body["stream"])

	sent := captured.Body["messages"].([]interface{})
	require.Len(t, sent, 2)
	assert.Equal(t, map[string]interface{}{"role": "user", "content": "Hello"}, sent[0])
	parts := sent[1].(map[string]interface{})["content"].([]interface{})
	require.Len(t, parts, 2)
	assert.Equal(t, "text", parts[0].(map[string]interface{})["type"])
	assert.Equal(t, "image_url", parts[1].(map[string]interface{})["type"])
}

func TestStreamCompletion_OmitsAuthorizationWithoutKey(t *testing.T) {
	srv, captured := newFakeAPI(t, http.StatusOK, "data: [DONE]\n\n")
	svc := New(Config{BaseURL: srv.URL, Model: "m"}, nil)

	body, err := svc.StreamCompletion(context.Background(), "", []models.Message{models.TextMessage(models.RoleUser, "x")})
	require.NoError(t, err)
	_ = body.Close()
	assert.Empty(t, captured.Authorization)
}

func TestStreamCompletion_StatusError(t *testing.T) {
	srv, _ := newFakeAPI(t, http.StatusUnauthorized, `{"error":"invalid api key"}`)
	svc := New(Config{BaseURL: srv.URL, Model: "m"}, nil)

	_, err := svc.StreamCompletion(context.Background(), "bad", []models.Message{models.TextMessage(models.RoleUser, "x")})
	require.Error(t, err)

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusUnauthorized, serr.StatusCode)
	assert.Contains(t, serr.Body, "invalid api key")
}

func TestStreamCompletion_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	svc := New(Config{BaseURL: url, Model: "m"}, nil)
	_, err := svc.StreamCompletion(context.Background(), "k", []models.Message{models.TextMessage(models.RoleUser, "x")})
	assert.ErrorContains(t, err, "failed to request completion")
}

func TestGenerateTitle(t *testing.T) {
	resp := `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1760000000,
		"model": "mixtral-8x7b-instruct",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "  Greeting Exchange\n"}, "finish_reason": "stop"}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13}
	}`
	srv, captured := newFakeAPI(t, http.StatusOK, resp)
	svc := New(Config{BaseURL: srv.URL + "/v1", Model: "gpt-5-chat", TitleModel: "mixtral-8x7b-instruct"}, nil)

	title, err := svc.GenerateTitle(context.Background(), "sk-test", []models.Message{
		models.TextMessage(models.RoleUser, "Hello"),
		models.TextMessage(models.RoleAssistant, "Hi there"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Greeting Exchange", title)

	assert.Equal(t, "/v1/chat/completions", captured.Path)
	assert.Equal(t, "Bearer sk-test", captured.Authorization)
	assert.Equal(t, "mixtral-8x7b-instruct", captured.Body["model"])
	assert.NotEqual(t, true, captured.Body["stream"])

	sent := captured.Body["messages"].([]interface{})
	require.Len(t, sent, 3)
	roles := []string{}
	for _, m := range sent {
		roles = append(roles, m.(map[string]interface{})["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "user"}, roles)
}

func TestGenerateTitle_RequiresKey(t *testing.T) {
	svc := New(Config{BaseURL: "http://127.0.0.1:1", Model: "m"}, nil)
	_, err := svc.GenerateTitle(context.Background(), " ", nil)
	assert.ErrorContains(t, err, "no API key")
}

func TestTitleConversation_KeepsImages(t *testing.T) {
	msgs := titleConversation([]models.Message{{Role: models.RoleUser, Content: models.Parts(
		models.Part{Type: models.PartText, Text: "look"},
		models.Part{Type: models.PartImageURL, ImageURL: &models.ImageURL{URL: "http://x/y.png"}},
	)}})
	require.Len(t, msgs, 2)
	assert.Len(t, msgs[1].Parts, 2)
}
