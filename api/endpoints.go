package api

import (
	"context"
	"net/http"
	"net/url"
)

type credentials struct {
	Username string `json:"username"`
}

// Login starts a server session for an existing user.
// A missing user yields an error matching ErrUserNotFound.
func (c *Client) Login(ctx context.Context, username string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, credentials{Username: username}, &u)
	return u, err
}

// Register creates the user and starts a session.
func (c *Client) Register(ctx context.Context, username string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/auth/register", nil, credentials{Username: username}, &u)
	return u, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
}

// Me returns the account behind the current session.
func (c *Client) Me(ctx context.Context) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/api/users/me", nil, nil, &u)
	return u, err
}

func (c *Client) Rooms(ctx context.Context) ([]Room, error) {
	var rooms []Room
	if err := c.do(ctx, http.MethodGet, "/api/rooms", nil, nil, &rooms); err != nil {
		return nil, err
	}
	return rooms, nil
}

func (c *Client) CreateRoom(ctx context.Context, name string) (Room, error) {
	var r Room
	err := c.do(ctx, http.MethodPost, "/api/rooms", nil, struct {
		Name string `json:"name"`
	}{Name: name}, &r)
	return r, err
}

// Messages returns the history of a room. A non-empty before restricts the
// result to messages created earlier than that cursor.
func (c *Client) Messages(ctx context.Context, roomID ID, before string) ([]Message, error) {
	q := url.Values{"room_id": {roomID.String()}}
	if before != "" {
		q.Set("before", before)
	}
	var msgs []Message
	if err := c.do(ctx, http.MethodGet, "/api/messages", q, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) PostMessage(ctx context.Context, content string, roomID ID) (Message, error) {
	var m Message
	err := c.do(ctx, http.MethodPost, "/api/messages", nil, struct {
		Content string `json:"content"`
		RoomID  ID     `json:"room_id"`
	}{Content: content, RoomID: roomID}, &m)
	return m, err
}

// BoardMessages lists the polling board.
func (c *Client) BoardMessages(ctx context.Context) ([]BoardMessage, error) {
	var msgs []BoardMessage
	if err := c.do(ctx, http.MethodGet, "/messages", nil, nil, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (c *Client) PostBoardMessage(ctx context.Context, post BoardPost) error {
	return c.do(ctx, http.MethodPost, "/messages", nil, post, nil)
}
