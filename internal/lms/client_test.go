package lms

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `{
  "ilt_sessions": [
    {"id": 7, "start_at": "2024-05-02 09:00:00", "end_at": "2024-05-02 10:00:00", "title": "Forklift", "enrolled": true, "zip_code": 69001}
  ],
  "open_ilt_sessions": [
    {"id": "b", "start_at": "2024-05-03 09:00:00", "end_at": "2024-05-03 10:00:00", "title": "Ladders", "seats_available": 3}
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Options{BaseURL: srv.URL + "/lms/", Token: "secret", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c
}

func TestFetchSessions(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/lms/enrolled_ilt_sessions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(samplePayload))
	})

	p, err := c.FetchSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, p.Enrolled, 1)
	require.Len(t, p.Available, 1)
	assert.Equal(t, "7", p.Enrolled[0].Key())
	assert.Equal(t, "69001", string(p.Enrolled[0].ZipCode))
	assert.Equal(t, 3, p.Available[0].Seats)
}

func TestFetchSessionsErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	})
	_, err := c.FetchSessions(context.Background())
	assert.ErrorContains(t, err, "502")

	c = newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	})
	_, err = c.FetchSessions(context.Background())
	assert.ErrorContains(t, err, "decode sessions")
}

func TestEnrollSendsRequestInfo(t *testing.T) {
	var got EnrollRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/lms/enroll_ilt_session", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	err := c.Enroll(context.Background(), EnrollRequest{
		Session:     " b ",
		RequestInfo: RequestInfo{Accommodation: "Yes", Comment: "vegetarian", NumberOfOneWay: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "b", got.Session)
	assert.Equal(t, "yes", got.RequestInfo.Accommodation)
	assert.Equal(t, "1", got.RequestInfo.NumberOfOneWay)
	assert.Equal(t, "", got.RequestInfo.NumberOfReturn)
}

func TestEnrollFailureShapes(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"status":        {http.StatusInternalServerError, `{}`},
		"success false": {http.StatusOK, `{"success": false, "message": "full"}`},
		"error field":   {http.StatusOK, `{"error": "session closed"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			assert.Error(t, c.Enroll(context.Background(), EnrollRequest{Session: "b"}))
		})
	}

	ok := map[string]string{
		"empty":      ``,
		"null error": `{"error": null}`,
		"not json":   `OK`,
	}
	for name, body := range ok {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			assert.NoError(t, c.Enroll(context.Background(), EnrollRequest{Session: "b"}))
		})
	}
}

func TestEnrollValidation(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	err := c.Enroll(context.Background(), EnrollRequest{Session: "b", RequestInfo: RequestInfo{Accommodation: "maybe"}})
	require.Error(t, err)
	fields := FieldErrors(err)
	assert.Contains(t, fields, "accommodation")

	err = c.Enroll(context.Background(), EnrollRequest{Session: "b", RequestInfo: RequestInfo{NumberOfReturn: "two"}})
	require.Error(t, err)
	assert.Contains(t, FieldErrors(err), "number_of_return")

	err = c.Enroll(context.Background(), EnrollRequest{Session: "b", RequestInfo: RequestInfo{NumberOfReturn: "-1"}})
	assert.Error(t, err)

	err = c.Enroll(context.Background(), EnrollRequest{})
	require.Error(t, err)
	assert.Contains(t, FieldErrors(err), "session")

	assert.False(t, called)
}

func TestNewRejectsRelativeBase(t *testing.T) {
	_, err := New(Options{BaseURL: "/lms"})
	assert.Error(t, err)
}
