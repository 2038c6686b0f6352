package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Message types carried in the "type" field.
const (
	TypeMessage        = "message"
	TypeUsernameChange = "username_change"
)

// ID is a backend identifier. The backend sends integers while the live channel
// and form values carry strings; both decode to the same value.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("decode id %s: %w", b, err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Timestamp accepts RFC 3339 and the zone-less ISO-8601 form the backend emits.
// Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	time.RFC1123,
	time.RFC1123Z,
}

func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t}, nil
		}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Timestamp{Time: time.UnixMilli(n).UTC()}, nil
	}
	return Timestamp{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if len(b) > 0 && b[0] != '"' {
		var n int64
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("decode timestamp %s: %w", b, err)
		}
		t.Time = time.UnixMilli(n).UTC()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// Room is one entry of the room list.
type Room struct {
	ID          ID     `json:"id"`
	Name        string `json:"name"`
	MemberCount int    `json:"member_count"`
}

// Message is a room message, fetched over REST or pushed over the live channel.
type Message struct {
	ID         ID        `json:"id,omitempty"`
	RoomID     ID        `json:"room_id,omitempty"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	Type       string    `json:"type,omitempty"`
	FocusState string    `json:"focus_state,omitempty"`
	CreatedAt  Timestamp `json:"created_at"`
}

// BoardMessage is an entry of the polling board.
type BoardMessage struct {
	Author  string    `json:"author"`
	Content string    `json:"content"`
	Type    string    `json:"type,omitempty"`
	Date    Timestamp `json:"date"`
}

// BoardPost is the body of a board submission.
type BoardPost struct {
	Content string `json:"content"`
	Type    string `json:"type"`
	Author  string `json:"author"`
}

// UsernameChange is the JSON content of a username_change board message.
type UsernameChange struct {
	OldUsername string `json:"old_username"`
	NewUsername string `json:"new_username"`
}

// User describes the logged-in account.
type User struct {
	ID                 ID     `json:"id"`
	Username           string `json:"username"`
	FocusState         string `json:"focus_state,omitempty"`
	TotalFocusTime     int    `json:"total_focus_time,omitempty"`
	PomodorosCompleted int    `json:"pomodoros_completed,omitempty"`
}
