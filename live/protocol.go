package live

import "encoding/json"

// Inbound events.
const (
	EventMessage     = "message"
	EventUserStatus  = "user_status"
	EventFocusChange = "focus_change"
	EventTimerUpdate = "timer_update"
)

// Outbound events.
const (
	EventJoinRoom  = "join_room"
	EventLeaveRoom = "leave_room"
	EventTimerSync = "timer_sync"
)

// Presence statuses carried by user_status.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusJoined  = "joined"
	StatusLeft    = "left"
)

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomRef is the payload of join_room and leave_room.
type RoomRef struct {
	RoomID string `json:"room_id"`
}

type UserStatus struct {
	Username string `json:"username"`
	Status   string `json:"status"`
	RoomID   string `json:"room_id,omitempty"`
}

type FocusChange struct {
	Username   string `json:"username"`
	FocusState string `json:"focus_state"`
}

// TimerSync is the timer snapshot pushed on every start/pause transition.
// timer_update echoes the same shape back to observers.
type TimerSync struct {
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
}
