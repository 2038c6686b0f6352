package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newBackend(t *testing.T, r chi.Router) *Client {
	t.Helper()
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestLoginUserNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ghost", body["username"])
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	})
	c := newBackend(t, r)

	_, err := c.Login(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUserNotFound)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestOtherFailuresAreNotUserNotFound(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "username is required"})
	})
	r.Post("/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	c := newBackend(t, r)

	_, err := c.Login(context.Background(), "")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUserNotFound)
	assert.Contains(t, err.Error(), "username is required")

	err = c.Logout(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "", se.Message)
}

func TestSessionCookieIsKept(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": "neo"})
	})
	r.Get("/api/users/me", func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie("session")
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "login required"})
			return
		}
		assert.Equal(t, "abc", ck.Value)
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "username": "neo", "focus_state": "IDLE", "pomodoros_completed": 3})
	})
	c := newBackend(t, r)

	u, err := c.Register(context.Background(), "neo")
	require.NoError(t, err)
	assert.Equal(t, ID("7"), u.ID)

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "neo", me.Username)
	assert.Equal(t, 3, me.PomodorosCompleted)

	cookies := c.Cookies()
	require.Len(t, cookies, 1)

	// a second client restored from the saved cookies shares the session
	other, err := New(c.BaseURL().String())
	require.NoError(t, err)
	other.RestoreCookies(cookies)
	_, err = other.Me(context.Background())
	assert.NoError(t, err)
}

func TestRoomsAndMessages(t *testing.T) {
	r := chi.NewRouter()
	r.Get("/api/rooms", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "name": "general", "member_count": 4},
			{"id": 2, "name": "focus", "member_count": 1},
		})
	})
	r.Get("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("room_id"))
		assert.Equal(t, "2024-05-01T10:00:00", r.URL.Query().Get("before"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": 9, "content": "hi", "author": "neo", "type": "message", "focus_state": "FOCUSING", "created_at": "2024-05-01T09:30:15.123456"},
		})
	})
	r.Post("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello", body["content"])
		assert.Equal(t, "2", body["room_id"])
		writeJSON(w, http.StatusOK, map[string]any{"id": 10, "content": "hello", "author": "neo", "created_at": "2024-05-01T09:31:00"})
	})
	c := newBackend(t, r)
	ctx := context.Background()

	rooms, err := c.Rooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, Room{ID: "1", Name: "general", MemberCount: 4}, rooms[0])

	msgs, err := c.Messages(ctx, "2", "2024-05-01T10:00:00")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "FOCUSING", msgs[0].FocusState)
	assert.Equal(t, time.Date(2024, 5, 1, 9, 30, 15, 123456000, time.UTC), msgs[0].CreatedAt.Time)

	m, err := c.PostMessage(ctx, "hello", "2")
	require.NoError(t, err)
	assert.Equal(t, ID("10"), m.ID)
}

func TestBoardEndpoints(t *testing.T) {
	var posted BoardPost
	r := chi.NewRouter()
	r.Get("/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, []map[string]any{
			{"author": "anonymous", "content": "first", "date": "2024-05-01T08:00:00Z"},
		})
	})
	r.Post("/messages", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&posted))
		writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
	})
	c := newBackend(t, r)
	ctx := context.Background()

	msgs, err := c.BoardMessages(ctx)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, 8, msgs[0].Date.Hour())

	require.NoError(t, c.PostBoardMessage(ctx, BoardPost{Content: "yo", Type: TypeMessage, Author: "anonymous"}))
	assert.Equal(t, BoardPost{Content: "yo", Type: TypeMessage, Author: "anonymous"}, posted)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("ftp://example.com")
	assert.Error(t, err)
	_, err = New("://bad")
	assert.Error(t, err)
}

func TestTimestampForms(t *testing.T) {
	for _, in := range []string{
		`"2024-05-01T09:30:15Z"`,
		`"2024-05-01T09:30:15"`,
		`"2024-05-01T11:30:15+02:00"`,
		`1714555815000`,
	} {
		var ts Timestamp
		require.NoError(t, json.Unmarshal([]byte(in), &ts), in)
		assert.True(t, ts.Equal(time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)), in)
	}

	var ts Timestamp
	assert.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	assert.True(t, ts.IsZero())
}

func TestIDAcceptsNumbersAndStrings(t *testing.T) {
	var r Room
	require.NoError(t, json.Unmarshal([]byte(`{"id":"12","name":"a"}`), &r))
	assert.Equal(t, ID("12"), r.ID)
	require.NoError(t, json.Unmarshal([]byte(`{"id":12,"name":"a"}`), &r))
	assert.Equal(t, ID("12"), r.ID)
}

func TestCookiesKeepExpiry(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	r := chi.NewRouter()
	r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/", Expires: expires, HttpOnly: true})
		http.SetCookie(w, &http.Cookie{Name: "theme-hint", Value: "x", Path: "/", MaxAge: 60})
		writeJSON(w, http.StatusOK, map[string]any{"id": 1, "username": "neo"})
	})
	c := newBackend(t, r)

	_, err := c.Login(context.Background(), "neo")
	require.NoError(t, err)

	byName := map[string]*http.Cookie{}
	for _, ck := range c.Cookies() {
		byName[ck.Name] = ck
	}
	require.Contains(t, byName, "session")
	require.Contains(t, byName, "theme-hint")
	assert.True(t, byName["session"].Expires.Equal(expires))
	assert.Equal(t, "/", byName["session"].Path)
	assert.WithinDuration(t, time.Now().Add(time.Minute), byName["theme-hint"].Expires, 5*time.Second)
}
