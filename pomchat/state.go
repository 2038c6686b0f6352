package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/pomchat/api"
	"github.com/gosuda/pomchat/config"
	"github.com/gosuda/pomchat/prefs"
	"github.com/gosuda/pomchat/session"
)

// clientState is what every command needs: the persisted prefs, the session and a
// REST client carrying the saved server session.
type clientState struct {
	kv      prefs.KV
	store   *prefs.Store
	session *session.Session
	client  *api.Client
}

func openClientState(c *config.Config) (*clientState, error) {
	st := &clientState{}
	if c.DataPath != "" {
		s, err := prefs.Open(c.DataPath)
		if err != nil {
			log.Warn().Err(err).Str("path", c.DataPath).Msg("[pomchat] open prefs failed; running in memory only")
		} else {
			st.store = s
			st.kv = s
		}
	}
	if st.kv == nil {
		st.kv = prefs.NewMemory()
	}
	st.session = session.New(st.kv)

	client, err := api.New(c.ServerURL)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("api client: %w", err)
	}
	st.client = client
	if cookies, err := loadCookies(st.kv, time.Now()); err != nil {
		log.Warn().Err(err).Msg("[pomchat] restore session cookies")
	} else {
		client.RestoreCookies(cookies)
	}
	return st, nil
}

// saveSession persists the current session cookies for the next invocation.
func (st *clientState) saveSession() {
	if err := saveCookies(st.kv, st.client.Cookies()); err != nil {
		log.Warn().Err(err).Msg("[pomchat] save session cookies")
	}
}

func (st *clientState) Close() {
	if st.store == nil {
		return
	}
	if err := st.store.Close(); err != nil {
		log.Warn().Err(err).Msg("[pomchat] prefs close error")
	}
}

type savedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

func saveCookies(kv prefs.KV, cookies []*http.Cookie) error {
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return kv.Set(prefs.KeyCookies, string(data))
}

// loadCookies returns the saved cookies that have not expired by now.
func loadCookies(kv prefs.KV, now time.Time) ([]*http.Cookie, error) {
	raw := prefs.Lookup(kv, prefs.KeyCookies, "")
	if raw == "" {
		return nil, nil
	}
	var saved []savedCookie
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return nil, err
	}
	out := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		if !s.Expires.IsZero() && !s.Expires.After(now) {
			log.Debug().Str("cookie", s.Name).Time("expired", s.Expires).Msg("[pomchat] dropping expired cookie")
			continue
		}
		out = append(out, &http.Cookie{
			Name:     s.Name,
			Value:    s.Value,
			Path:     s.Path,
			Expires:  s.Expires,
			Secure:   s.Secure,
			HttpOnly: s.HttpOnly,
		})
	}
	return out, nil
}
