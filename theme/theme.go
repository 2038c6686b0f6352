// Package theme keeps the light/dark preference and applies it to a display.
package theme

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/pomchat/prefs"
	"github.com/gosuda/pomchat/view"
)

const (
	Light = "light"
	Dark  = "dark"
)

type Manager struct {
	mu      sync.Mutex
	kv      prefs.KV
	display view.Display
	current string
}

// NewManager loads the stored theme (light when unset) and applies it.
func NewManager(kv prefs.KV, display view.Display) *Manager {
	if kv == nil {
		kv = prefs.NewMemory()
	}
	t := prefs.Lookup(kv, prefs.KeyTheme, Light)
	if t != Dark {
		t = Light
	}
	m := &Manager{kv: kv, display: display, current: t}
	m.apply()
	return m
}

func (m *Manager) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Toggle flips the theme, persists it and reapplies. It returns the new theme.
func (m *Manager) Toggle() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == Light {
		m.current = Dark
	} else {
		m.current = Light
	}
	if err := m.kv.Set(prefs.KeyTheme, m.current); err != nil {
		log.Warn().Err(err).Msg("[theme] persist")
	}
	m.applyLocked()
	return m.current
}

func (m *Manager) apply() {
	m.mu.Lock()
	m.applyLocked()
	m.mu.Unlock()
}

func (m *Manager) applyLocked() {
	if m.display == nil {
		return
	}
	m.display.SetClass(view.RegionBody, view.BodyClass(m.current))
	m.display.SetClass(view.RegionThemeIcon, view.ThemeIcon(m.current))
}
