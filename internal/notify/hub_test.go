package notify

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishKeepsRecentPerPage(t *testing.T) {
	h := NewHub()
	h.Open("page-a")
	h.Open("page-b")
	n := h.For("page-a")
	n.Success("enrolled")
	n.Error("failed")
	h.For("page-b").Success("other")

	got := h.Recent("page-a")
	require.Len(t, got, 2)
	assert.Equal(t, LevelSuccess, got[0].Level)
	assert.Equal(t, "enrolled", got[0].Message)
	assert.Equal(t, LevelError, got[1].Level)
	assert.NotEqual(t, got[0].ID, got[1].ID)

	assert.Len(t, h.Recent("page-b"), 1)
	assert.Empty(t, h.Recent("missing"))
}

func TestRecentIsBounded(t *testing.T) {
	h := NewHub()
	h.Open("p")
	for i := 0; i < keep+5; i++ {
		h.Publish("p", LevelSuccess, fmt.Sprintf("m%d", i))
	}
	got := h.Recent("p")
	require.Len(t, got, keep)
	assert.Equal(t, "m5", got[0].Message)
	assert.Equal(t, fmt.Sprintf("m%d", keep+4), got[keep-1].Message)
}

func TestDropForgetsPage(t *testing.T) {
	h := NewHub()
	h.Open("p")
	h.Publish("p", LevelError, "x")
	require.Len(t, h.Recent("p"), 1)

	h.Drop("p")
	assert.False(t, h.Has("p"))
	assert.Empty(t, h.Recent("p"))
	h.Drop("p")

	// A late notification does not bring the page back.
	h.For("p").Success("too late")
	assert.False(t, h.Has("p"))
	assert.Empty(t, h.Recent("p"))
}

func TestServeWSRejectsDroppedPage(t *testing.T) {
	h := NewHub()
	h.Open("p1")
	h.Drop("p1")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, "p1")
	}))
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, h.Has("p1"))
	assert.Equal(t, 0, h.ClientCount("p1"))
}

func TestServeWSDeliversToPage(t *testing.T) {
	h := NewHub()
	h.Open("p1")
	h.Open("p2")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeWS(w, r, r.URL.Query().Get("page"))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?page=p1"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return h.ClientCount("p1") == 1 }, 2*time.Second, 10*time.Millisecond)

	h.Publish("p2", LevelSuccess, "not for you")
	h.For("p1").Success("Enrolled in Forklift")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var n Notification
	require.NoError(t, json.Unmarshal(data, &n))
	assert.Equal(t, "Enrolled in Forklift", n.Message)
	assert.Equal(t, LevelSuccess, n.Level)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount("p1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSameOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://cal.local/ws", nil)
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://cal.local")
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://evil.example")
	assert.False(t, sameOrigin(r))
}
