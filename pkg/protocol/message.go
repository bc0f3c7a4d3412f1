package protocol

import "encoding/json"

type (
	ConnectionID = string
	UserID       = string
	RoomID       = string
	AwaitID      = string
)

// Action is the discriminant of a client request.
type Action string

const (
	ActionRoomCreate    Action = "room_create"
	ActionRoomJoin      Action = "room_join"
	ActionRoomLeave     Action = "room_leave"
	ActionRoomGet       Action = "room_get"
	ActionRoomBroadcast Action = "room_broadcast"
	ActionMessageRelay  Action = "message_relay"
	ActionUserRegister  Action = "user_register"
	ActionUserLogin     Action = "user_login"
	ActionUserUpdate    Action = "user_update"
	ActionPluginSet     Action = "plugin_set"
)

// EventType is the discriminant of a room event.
type EventType string

const (
	EventUserJoined      EventType = "user_joined"
	EventUserLeft        EventType = "user_left"
	EventUserDataChanged EventType = "user_data_changed"
	EventPluginSet       EventType = "plugin_set"
)

// Kind tags every server to client frame.
type Kind string

const (
	KindEvent    Kind = "event"
	KindResponse Kind = "response"
	KindRelay    Kind = "relay"
	KindError    Kind = "error"
)

// Request is a client frame. Timestamp and SocketID are stamped by the server
// on arrival; values sent by the client are discarded.
type Request struct {
	Type      Action          `json:"type"`
	AwaitID   AwaitID         `json:"awaitId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	SocketID  ConnectionID    `json:"socketId"`
}

// Outbound is implemented by every server frame.
type Outbound interface {
	Kind() Kind
}

type Event struct {
	Type   EventType `json:"type"`
	RoomID RoomID    `json:"roomId"`
	Data   any       `json:"data"`
}

func (Event) Kind() Kind { return KindEvent }

// Response answers one request. Errors is never nil; an empty list is success.
type Response struct {
	AwaitID     AwaitID  `json:"awaitId"`
	RequestType Action   `json:"requestType"`
	Data        any      `json:"data,omitempty"`
	Errors      []string `json:"errors"`
}

func (Response) Kind() Kind { return KindResponse }

func (r Response) Failed() bool { return len(r.Errors) > 0 }

// RelayDelivery carries an opaque payload to a receiver. SenderID is always
// set by the server.
type RelayDelivery struct {
	AwaitID   AwaitID         `json:"awaitId,omitempty"`
	RoomID    RoomID          `json:"roomId"`
	SenderID  UserID          `json:"senderId"`
	RelayData json.RawMessage `json:"relayData"`
	Errors    []string        `json:"errors"`
}

func (RelayDelivery) Kind() Kind { return KindRelay }

// ErrorResponse is the generic failure for conditions without a specific code.
type ErrorResponse struct {
	AwaitID     AwaitID `json:"awaitId,omitempty"`
	RequestType Action  `json:"requestType,omitempty"`
	Code        int     `json:"code"`
	Message     string  `json:"message"`
}

func (ErrorResponse) Kind() Kind { return KindError }

// Marshal encodes a frame with its kind tag.
func Marshal(m Outbound) ([]byte, error) {
	switch v := m.(type) {
	case Event:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			Event
		}{v.Kind(), v})
	case Response:
		if v.Errors == nil {
			v.Errors = []string{}
		}
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			Response
		}{v.Kind(), v})
	case RelayDelivery:
		if v.Errors == nil {
			v.Errors = []string{}
		}
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			RelayDelivery
		}{v.Kind(), v})
	case ErrorResponse:
		return json.Marshal(struct {
			Kind Kind `json:"kind"`
			ErrorResponse
		}{v.Kind(), v})
	default:
		return json.Marshal(m)
	}
}
