package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendPostsUserAndMessage(t *testing.T) {
	var got map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL)
	err := client.Send(context.Background(), "123456789", Message{
		Embed: &Embed{Title: "📚 cs.AI 论文摘要", Color: 0x5865F2},
	})
	require.NoError(t, err)

	var userID string
	require.NoError(t, json.Unmarshal(got["user_id"], &userID))
	assert.Equal(t, "123456789", userID)

	var msg Message
	require.NoError(t, json.Unmarshal(got["message"], &msg))
	require.NotNil(t, msg.Embed)
	assert.Equal(t, "📚 cs.AI 论文摘要", msg.Embed.Title)
}

func TestSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "user not connected", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := New(srv.URL).Send(context.Background(), "123", Message{Content: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSendConnectionRefused(t *testing.T) {
	err := New("http://127.0.0.1:1").Send(context.Background(), "123", Message{Content: "hi"})
	assert.Error(t, err)
}
