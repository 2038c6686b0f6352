// Package board is the polling message board: a single public feed reloaded on
// an interval, with free-form author names.
package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/pomchat/api"
	"github.com/gosuda/pomchat/session"
	"github.com/gosuda/pomchat/view"
)

const DefaultInterval = 5 * time.Second

const alertInvalidUsername = "Invalid username format. Use 3-20 letters, numbers, or underscores."

var (
	ErrInvalidUsername = errors.New("board: invalid username")
	ErrEmptyMessage    = errors.New("board: empty message")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// ValidUsername reports whether name is 3-20 letters, digits or underscores.
func ValidUsername(name string) bool { return usernamePattern.MatchString(name) }

type Backend interface {
	BoardMessages(ctx context.Context) ([]api.BoardMessage, error)
	PostBoardMessage(ctx context.Context, post api.BoardPost) error
}

type Deps struct {
	Backend  Backend
	Display  view.Display
	Session  *session.Session
	Alert    view.Alerter
	Clock    clock.Clock
	Interval time.Duration
}

type Board struct {
	backend  Backend
	display  view.Display
	session  *session.Session
	alert    view.Alerter
	clk      clock.Clock
	interval time.Duration

	mu       sync.Mutex
	messages []api.BoardMessage
}

// New builds a board and shows the current username label.
func New(d Deps) *Board {
	if d.Session == nil {
		d.Session = session.New(nil)
	}
	if d.Clock == nil {
		d.Clock = clock.New()
	}
	if d.Interval <= 0 {
		d.Interval = DefaultInterval
	}
	b := &Board{
		backend:  d.Backend,
		display:  d.Display,
		session:  d.Session,
		alert:    d.Alert,
		clk:      d.Clock,
		interval: d.Interval,
	}
	b.display.SetText(view.RegionUsername, view.UsernameLabel(b.session.Username()))
	return b
}

// Load fetches the feed and re-renders it.
func (b *Board) Load(ctx context.Context) error {
	msgs, err := b.backend.BoardMessages(ctx)
	if err != nil {
		return fmt.Errorf("load board: %w", err)
	}
	b.mu.Lock()
	b.messages = msgs
	b.display.Render(view.RegionBoard, view.Board(msgs))
	b.display.ScrollToEnd(view.RegionBoard)
	b.mu.Unlock()
	return nil
}

// Run loads the feed now and then on every interval until ctx is done.
// Failed loads are logged and polling continues.
func (b *Board) Run(ctx context.Context) error {
	ticker := b.clk.Ticker(b.interval)
	defer ticker.Stop()

	b.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			b.poll(ctx)
		}
	}
}

func (b *Board) poll(ctx context.Context) {
	if err := b.Load(ctx); err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("[board] poll")
	}
}

// Send posts content as the current user and reloads on success. Only a failed
// post is reported.
func (b *Board) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}
	return b.post(ctx, content, api.TypeMessage)
}

// ChangeUsername announces a rename on the board, then persists it.
func (b *Board) ChangeUsername(ctx context.Context, name string) error {
	if !ValidUsername(name) {
		if b.alert != nil {
			b.alert.Alert(alertInvalidUsername)
		}
		return ErrInvalidUsername
	}
	content, err := json.Marshal(api.UsernameChange{
		OldUsername: b.session.Username(),
		NewUsername: name,
	})
	if err != nil {
		return err
	}
	if err := b.post(ctx, string(content), api.TypeUsernameChange); err != nil {
		return err
	}
	if err := b.session.SetUsername(name); err != nil {
		log.Warn().Err(err).Msg("[board] persist username")
	}
	b.display.SetText(view.RegionUsername, view.UsernameLabel(name))
	log.Info().Str("username", name).Msg("[board] username changed")
	return nil
}

func (b *Board) post(ctx context.Context, content, typ string) error {
	err := b.backend.PostBoardMessage(ctx, api.BoardPost{
		Content: content,
		Type:    typ,
		Author:  b.session.Username(),
	})
	if err != nil {
		return fmt.Errorf("post board message: %w", err)
	}
	// the post is stored; a failed refresh is picked up by the next poll
	if err := b.Load(ctx); err != nil {
		log.Warn().Err(err).Msg("[board] reload after post")
	}
	return nil
}

func (b *Board) Messages() []api.BoardMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]api.BoardMessage(nil), b.messages...)
}
