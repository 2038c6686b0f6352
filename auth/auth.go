// Package auth drives login, automatic registration and logout.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/pomchat/api"
	"github.com/gosuda/pomchat/view"
)

// Navigation targets.
const (
	PathChat    = "/chat"
	PathLanding = "/"
)

const (
	msgLoginFailed    = "Login failed. Please try again."
	msgRegisterFailed = "Registration failed. Please try again."
)

// Backend is the part of the REST client auth needs.
type Backend interface {
	Login(ctx context.Context, username string) (api.User, error)
	Register(ctx context.Context, username string) (api.User, error)
	Logout(ctx context.Context) error
}

// Navigator moves the client to another view.
type Navigator interface {
	Navigate(path string)
}

type Manager struct {
	backend Backend
	prompt  view.Prompter
	alert   view.Alerter
	nav     Navigator
}

func NewManager(backend Backend, prompt view.Prompter, alert view.Alerter, nav Navigator) *Manager {
	return &Manager{backend: backend, prompt: prompt, alert: alert, nav: nav}
}

// PromptLogin asks for a username and logs in. An empty answer does nothing.
func (m *Manager) PromptLogin(ctx context.Context) error {
	username, err := m.prompt.Prompt(ctx, "Enter your username:")
	if err != nil {
		return err
	}
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}
	return m.Login(ctx, username)
}

// Login signs in, falling back to registration when the user does not exist yet.
func (m *Manager) Login(ctx context.Context, username string) error {
	_, err := m.backend.Login(ctx, username)
	if err == nil {
		log.Info().Str("user", username).Msg("[auth] logged in")
		m.nav.Navigate(PathChat)
		return nil
	}
	if errors.Is(err, api.ErrUserNotFound) {
		log.Info().Str("user", username).Msg("[auth] unknown user, registering")
		return m.Register(ctx, username)
	}
	log.Warn().Err(err).Str("user", username).Msg("[auth] login failed")
	m.alert.Alert(msgLoginFailed)
	return err
}

func (m *Manager) Register(ctx context.Context, username string) error {
	if _, err := m.backend.Register(ctx, username); err != nil {
		log.Warn().Err(err).Str("user", username).Msg("[auth] register failed")
		m.alert.Alert(msgRegisterFailed)
		return err
	}
	log.Info().Str("user", username).Msg("[auth] registered")
	m.nav.Navigate(PathChat)
	return nil
}

// Logout ends the server session. Failures are logged only.
func (m *Manager) Logout(ctx context.Context) error {
	if err := m.backend.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("[auth] logout failed")
		return err
	}
	m.nav.Navigate(PathLanding)
	return nil
}
