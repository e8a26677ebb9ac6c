package watson

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	errx "github.com/procurebot/relay/internal/core/error"
	"github.com/procurebot/relay/internal/nlu"
)

func TestNew_RequiresWorkspace(t *testing.T) {
	_, err := New(Config{URL: "http://x"}, nil)
	require.Error(t, err)
}

func TestMessage_SendsTextAndContext(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/workspaces/ws-1/message", r.URL.Path)
		require.Equal(t, "2017-05-26", r.URL.Query().Get("version"))
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		require.Equal(t, "bob", user)
		require.Equal(t, "secret", pass)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"output": {"text": ["Your PO status is: "]},
			"context": {"conversation_id": "c-1", "response": {"intent_po_status": "true", "po_number": "4500012"}}
		}`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL + "/", WorkspaceID: "ws-1", Username: "bob", Password: "secret", Version: "2017-05-26"}, srv.Client())
	require.NoError(t, err)

	resp, err := c.Message(context.Background(), "status of po 4500012", nlu.Context{"conversation_id": "c-1"})
	require.NoError(t, err)

	require.Equal(t, map[string]any{"text": "status of po 4500012"}, got["input"])
	require.Equal(t, map[string]any{"conversation_id": "c-1"}, got["context"])

	first, err := resp.FirstText()
	require.NoError(t, err)
	require.Equal(t, "Your PO status is: ", first)
	slots, ok := resp.Context.Slots()
	require.True(t, ok)
	require.True(t, slots.Flag(nlu.FlagPOStatus))
}

func TestMessage_OmitsNilContext(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"output":{"text":["Hi"]},"context":{"conversation_id":"new"}}`))
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, WorkspaceID: "ws-1"}, srv.Client())
	require.NoError(t, err)

	_, err = c.Message(context.Background(), "hi", nil)
	require.NoError(t, err)
	_, present := got["context"]
	require.False(t, present)
}

func TestMessage_Non2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Unauthorized"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, WorkspaceID: "ws-1"}, srv.Client())
	require.NoError(t, err)

	_, err = c.Message(context.Background(), "hi", nil)
	require.Error(t, err)
	require.Equal(t, http.StatusBadGateway, errx.StatusOf(err))
	require.Contains(t, err.Error(), "401")
}
