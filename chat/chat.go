// Package chat is the room chat controller: room list, membership over the live
// channel, message history and presence.
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/gosuda/pomchat/api"
	"github.com/gosuda/pomchat/live"
	"github.com/gosuda/pomchat/session"
	"github.com/gosuda/pomchat/view"
)

var (
	ErrNoRoom       = errors.New("chat: no room joined")
	ErrEmptyMessage = errors.New("chat: empty message")
)

const attrFocusState = "data-focus-state"

// Backend is the part of the REST client the chat needs.
type Backend interface {
	Rooms(ctx context.Context) ([]api.Room, error)
	CreateRoom(ctx context.Context, name string) (api.Room, error)
	Messages(ctx context.Context, roomID api.ID, before string) ([]api.Message, error)
	PostMessage(ctx context.Context, content string, roomID api.ID) (api.Message, error)
}

// Deps wires an App to its collaborators.
type Deps struct {
	Backend Backend
	Live    live.Emitter
	Display view.Display
	Session *session.Session
	Prompt  view.Prompter
}

// App owns the chat state. Every state change re-renders the affected region,
// except focus changes which patch the rendered user entry in place.
type App struct {
	backend Backend
	live    live.Emitter
	display view.Display
	session *session.Session
	prompt  view.Prompter

	loads singleflight.Group

	mu       sync.Mutex
	rooms    []api.Room
	messages []api.Message
	users    map[string]string // username -> focus state
}

func New(d Deps) *App {
	if d.Session == nil {
		d.Session = session.New(nil)
	}
	return &App{
		backend: d.Backend,
		live:    d.Live,
		display: d.Display,
		session: d.Session,
		prompt:  d.Prompt,
		users:   map[string]string{},
	}
}

// Bind subscribes the inbound event handlers.
func (a *App) Bind(sub live.Subscriber) {
	sub.On(live.EventMessage, a.HandleMessage)
	sub.On(live.EventUserStatus, a.HandleUserStatus)
	sub.On(live.EventFocusChange, a.HandleFocusChange)
}

// LoadRooms fetches and renders the room list. Overlapping calls share one request.
func (a *App) LoadRooms(ctx context.Context) ([]api.Room, error) {
	v, err, _ := a.loads.Do("rooms", func() (any, error) {
		return a.backend.Rooms(ctx)
	})
	if err != nil {
		log.Warn().Err(err).Msg("[chat] load rooms")
		return nil, err
	}
	rooms := v.([]api.Room)

	a.mu.Lock()
	a.rooms = rooms
	a.display.Render(view.RegionRooms, view.Rooms(rooms))
	a.mu.Unlock()
	return rooms, nil
}

// CreateRoom prompts for a name, creates the room and reloads the list.
func (a *App) CreateRoom(ctx context.Context) error {
	name, err := a.prompt.Prompt(ctx, "Enter room name:")
	if err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	room, err := a.backend.CreateRoom(ctx, name)
	if err != nil {
		log.Warn().Err(err).Str("room", name).Msg("[chat] create room")
		return err
	}
	log.Info().Str("room", room.Name).Str("id", room.ID.String()).Msg("[chat] room created")
	_, err = a.LoadRooms(ctx)
	return err
}

// JoinRoom leaves the current room (if any), joins roomID and loads its history.
func (a *App) JoinRoom(ctx context.Context, roomID string) error {
	prev := a.session.SwitchRoom(roomID)
	if prev != "" {
		a.emit(live.EventLeaveRoom, live.RoomRef{RoomID: prev})
	}
	a.emit(live.EventJoinRoom, live.RoomRef{RoomID: roomID})

	msgs, err := a.backend.Messages(ctx, api.ID(roomID), "")
	if err != nil {
		log.Warn().Err(err).Str("room", roomID).Msg("[chat] load messages")
		return err
	}
	a.mu.Lock()
	a.messages = msgs
	a.renderMessagesLocked()
	a.mu.Unlock()
	return nil
}

// SendMessage posts input to the current room. Nothing is sent without a room
// or with blank input; on error the caller keeps its input for a retry.
func (a *App) SendMessage(ctx context.Context, input string) error {
	room := a.session.Room()
	if room == "" {
		return ErrNoRoom
	}
	if strings.TrimSpace(input) == "" {
		return ErrEmptyMessage
	}
	if _, err := a.backend.PostMessage(ctx, input, api.ID(room)); err != nil {
		log.Warn().Err(err).Str("room", room).Msg("[chat] send message")
		return err
	}
	return nil
}

func (a *App) HandleMessage(data json.RawMessage) {
	var m api.Message
	if err := json.Unmarshal(data, &m); err != nil {
		log.Debug().Err(err).Msg("[chat] bad message event")
		return
	}
	a.mu.Lock()
	a.messages = append(a.messages, m)
	a.renderMessagesLocked()
	a.mu.Unlock()
}

func (a *App) HandleUserStatus(data json.RawMessage) {
	var st live.UserStatus
	if err := json.Unmarshal(data, &st); err != nil || st.Username == "" {
		log.Debug().Err(err).Msg("[chat] bad user_status event")
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	switch st.Status {
	case live.StatusOnline:
		if _, ok := a.users[st.Username]; !ok {
			a.users[st.Username] = ""
		}
	case live.StatusOffline:
		delete(a.users, st.Username)
	default:
		// room joined/left notices do not change presence
		return
	}
	a.display.Render(view.RegionUsers, view.Users(a.presenceLocked()))
}

func (a *App) HandleFocusChange(data json.RawMessage) {
	var fc live.FocusChange
	if err := json.Unmarshal(data, &fc); err != nil {
		log.Debug().Err(err).Msg("[chat] bad focus_change event")
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.users[fc.Username]; !ok {
		return
	}
	a.users[fc.Username] = fc.FocusState
	a.display.Annotate(view.RegionUsers, view.UserSelector(fc.Username), attrFocusState, fc.FocusState)
}

// Messages returns a copy of the message list.
func (a *App) Messages() []api.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]api.Message(nil), a.messages...)
}

// Users returns the present usernames, sorted.
func (a *App) Users() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.users))
	for _, p := range a.presenceLocked() {
		out = append(out, p.Username)
	}
	return out
}

func (a *App) Rooms() []api.Room {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]api.Room(nil), a.rooms...)
}

func (a *App) emit(event string, ref live.RoomRef) {
	if a.live == nil {
		return
	}
	if err := a.live.Emit(event, ref); err != nil {
		log.Warn().Err(err).Str("event", event).Str("room", ref.RoomID).Msg("[chat] emit")
	}
}

func (a *App) renderMessagesLocked() {
	a.display.Render(view.RegionMessages, view.Messages(a.messages))
	a.display.ScrollToEnd(view.RegionMessages)
}

func (a *App) presenceLocked() []view.Presence {
	out := make([]view.Presence, 0, len(a.users))
	for name, focus := range a.users {
		out = append(out, view.Presence{Username: name, FocusState: focus})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out
}
