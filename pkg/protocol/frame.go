// Package protocol defines the wire frames exchanged over the realtime
// websocket connection. Every frame is a single JSON object with a
// discriminating "type" field; the Go model is a closed set of variants so
// dispatch sites can switch exhaustively.
package protocol

import (
	"encoding/json"
	"errors"
	"time"
)

// Frame type discriminators
const (
	KindJoin         = "join"
	KindLeave        = "leave"
	KindMessage      = "message"
	KindConnection   = "connection"
	KindError        = "error"
	KindRoom         = "room"
	KindBookUpdate   = "book_update"
	KindNewBook      = "new_book"
	KindUserActivity = "user_activity"
)

// Room notification actions
const (
	ActionJoin  = "join"
	ActionLeave = "leave"
)

// NewBooksRoom is the conventional room for new-book announcements.
const NewBooksRoom = "new_books"

// BookRoom returns the conventional room name for a book's updates.
func BookRoom(bookID string) string {
	return "book:" + bookID
}

// UserRoom returns the conventional room name for a user's activity feed.
func UserRoom(userID string) string {
	return "user:" + userID
}

// ErrInvalidFrame is returned when an inbound payload cannot be decoded.
var ErrInvalidFrame = errors.New("invalid message format")

// Frame is one decoded wire message.
type Frame interface {
	Kind() string
}

// Join is a client request to enter a room.
type Join struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// NewJoin creates a join frame for the given room.
func NewJoin(room string) Join {
	return Join{Type: KindJoin, Room: room}
}

// Kind implements Frame
func (Join) Kind() string { return KindJoin }

// Leave is a client request to exit a room.
type Leave struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

// NewLeave creates a leave frame for the given room.
func NewLeave(room string) Leave {
	return Leave{Type: KindLeave, Room: room}
}

// Kind implements Frame
func (Leave) Kind() string { return KindLeave }

// Publish is a client request to broadcast a message to a room. It shares the
// "message" wire type with the server-originated Message frame but carries a
// room instead of a sender.
type Publish struct {
	Type    string          `json:"type"`
	Room    string          `json:"room"`
	Message json.RawMessage `json:"message"`
}

// NewPublish creates a publish frame for the given room and payload.
func NewPublish(room string, message json.RawMessage) Publish {
	return Publish{Type: KindMessage, Room: room, Message: message}
}

// Kind implements Frame
func (Publish) Kind() string { return KindMessage }

// Connection is the handshake acknowledgement telling a client its id.
type Connection struct {
	Type     string `json:"type"`
	Status   string `json:"status"`
	ClientID string `json:"clientId"`
}

// StatusConnected is the status carried by the handshake acknowledgement.
const StatusConnected = "connected"

// NewConnection creates a handshake acknowledgement frame.
func NewConnection(clientID string) Connection {
	return Connection{Type: KindConnection, Status: StatusConnected, ClientID: clientID}
}

// Kind implements Frame
func (Connection) Kind() string { return KindConnection }

// Error reports a malformed inbound frame back to its sender.
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewError creates an error frame.
func NewError(message string) Error {
	return Error{Type: KindError, Message: message}
}

// Kind implements Frame
func (Error) Kind() string { return KindError }

// Message is a relayed payload fanned out to a room.
type Message struct {
	Type      string          `json:"type"`
	ClientID  string          `json:"clientId"`
	Message   json.RawMessage `json:"message"`
	Timestamp int64           `json:"timestamp"`
}

// NewMessage creates a relayed message frame stamped with the current time.
func NewMessage(clientID string, message json.RawMessage) Message {
	return Message{Type: KindMessage, ClientID: clientID, Message: message, Timestamp: nowMillis()}
}

// Kind implements Frame
func (Message) Kind() string { return KindMessage }

// Room is a membership change notice fanned out to a room.
type Room struct {
	Type      string `json:"type"`
	Action    string `json:"action"`
	ClientID  string `json:"clientId"`
	Timestamp int64  `json:"timestamp"`
}

// NewRoom creates a membership notice stamped with the current time.
func NewRoom(action, clientID string) Room {
	return Room{Type: KindRoom, Action: action, ClientID: clientID, Timestamp: nowMillis()}
}

// Kind implements Frame
func (Room) Kind() string { return KindRoom }

// BookUpdate announces a change to a book on its conventional room.
type BookUpdate struct {
	Type      string          `json:"type"`
	BookID    string          `json:"bookId"`
	Update    json.RawMessage `json:"update"`
	Timestamp int64           `json:"timestamp"`
}

// NewBookUpdate creates a book update frame stamped with the current time.
func NewBookUpdate(bookID string, update json.RawMessage) BookUpdate {
	return BookUpdate{Type: KindBookUpdate, BookID: bookID, Update: update, Timestamp: nowMillis()}
}

// Kind implements Frame
func (BookUpdate) Kind() string { return KindBookUpdate }

// NewBook announces a newly added book on the new_books room.
type NewBook struct {
	Type      string          `json:"type"`
	Book      json.RawMessage `json:"book"`
	Timestamp int64           `json:"timestamp"`
}

// NewNewBook creates a new-book frame stamped with the current time.
func NewNewBook(book json.RawMessage) NewBook {
	return NewBook{Type: KindNewBook, Book: book, Timestamp: nowMillis()}
}

// Kind implements Frame
func (NewBook) Kind() string { return KindNewBook }

// UserActivity announces activity on a user's conventional room.
type UserActivity struct {
	Type      string          `json:"type"`
	UserID    string          `json:"userId"`
	Activity  json.RawMessage `json:"activity"`
	Timestamp int64           `json:"timestamp"`
}

// NewUserActivity creates a user activity frame stamped with the current time.
func NewUserActivity(userID string, activity json.RawMessage) UserActivity {
	return UserActivity{Type: KindUserActivity, UserID: userID, Activity: activity, Timestamp: nowMillis()}
}

// Kind implements Frame
func (UserActivity) Kind() string { return KindUserActivity }

// Unknown is a frame that parsed but carries an unrecognized type. Routers
// log and drop these instead of answering with an error frame.
type Unknown struct {
	Type string `json:"type"`
}

// Kind implements Frame
func (u Unknown) Kind() string { return u.Type }

// Encode serializes a frame for the wire.
func Encode(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

type envelope struct {
	Type string `json:"type"`
}

// DecodeInbound decodes a client-to-server payload into its variant.
// Payloads that are not JSON objects, lack a type, or lack a required room
// yield ErrInvalidFrame. A recognizably-shaped frame with an unrecognized
// type decodes into Unknown.
func DecodeInbound(raw []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrInvalidFrame
	}
	if env.Type == "" {
		return nil, ErrInvalidFrame
	}

	switch env.Type {
	case KindJoin:
		var f Join
		if err := json.Unmarshal(raw, &f); err != nil || f.Room == "" {
			return nil, ErrInvalidFrame
		}
		return f, nil
	case KindLeave:
		var f Leave
		if err := json.Unmarshal(raw, &f); err != nil || f.Room == "" {
			return nil, ErrInvalidFrame
		}
		return f, nil
	case KindMessage:
		var f Publish
		if err := json.Unmarshal(raw, &f); err != nil || f.Room == "" {
			return nil, ErrInvalidFrame
		}
		return f, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}

// DecodeOutbound decodes a server-to-client payload into its variant.
func DecodeOutbound(raw []byte) (Frame, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrInvalidFrame
	}
	if env.Type == "" {
		return nil, ErrInvalidFrame
	}

	switch env.Type {
	case KindConnection:
		var f Connection
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, ErrInvalidFrame
		}
		return f, nil
	case KindError:
		var f Error
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, ErrInvalidFrame
		}
		return f, nil
	case KindMessage:
		var f Message
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, ErrInvalidFrame
		}
		return f, nil
	case KindRoom:
		var f Room
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, ErrInvalidFrame
		}
		return f, nil
	case KindBookUpdate:
		var f BookUpdate
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, ErrInvalidFrame
		}
		return f, nil
	case KindNewBook:
		var f NewBook
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, ErrInvalidFrame
		}
		return f, nil
	case KindUserActivity:
		var f UserActivity
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, ErrInvalidFrame
		}
		return f, nil
	default:
		return Unknown{Type: env.Type}, nil
	}
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
