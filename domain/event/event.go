package event

import (
	"encoding/json"
	"time"

	"sendify-chat/domain"

	"github.com/samber/lo"
)

// Event names on the wire.
const (
	NameMessage     = "message"
	NameRoomRoster  = "roomRoster"
	NameAck         = "ack"
	NameJoin        = "join"
	NameSendMessage = "sendMessage"
	NameError       = "error"
)

// SystemAuthor signs presence notices.
const SystemAuthor = "Admin"

// Frame is the single envelope exchanged over a websocket in both directions.
// Ack correlates a client request with its server acknowledgement.
type Frame struct {
	Event string          `json:"event"`
	Ack   *uint64         `json:"ack,omitempty"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewAck acknowledges a request. A nil err means success.
func NewAck(id uint64, err error) Frame {
	frame := Frame{Event: NameAck, Ack: lo.ToPtr(id)}
	if err != nil {
		frame.Error = err.Error()
	}
	return frame
}

// Envelope is what travels between processes on the relay channel.
// Except names a connection that must not receive the event.
type Envelope struct {
	Origin  string          `json:"origin"`
	Room    string          `json:"room"`
	Name    string          `json:"event"`
	Except  string          `json:"except,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

func (e Envelope) Frame() Frame {
	return Frame{Event: e.Name, Data: e.Payload}
}

// MessageEvent is the client projection of a persisted chat message.
// Identifiers are strings so clients never round them through a float.
type MessageEvent struct {
	ChannelID string `json:"channelId"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	ObjectURL string `json:"objectUrl"`
	Size      string `json:"size"`
	CreatedAt int64  `json:"createdAt"`
}

func NewMessageEvent(m domain.ChatMessage) MessageEvent {
	return MessageEvent{
		ChannelID: m.ChannelID.String(),
		UserID:    m.Author.UserID,
		Username:  m.Author.Username,
		Content:   m.Body.Content,
		Type:      string(m.Kind),
		ObjectURL: m.Body.ObjectURL,
		Size:      m.Body.Size,
		CreatedAt: m.CreatedAt.UnixMilli(),
	}
}

// NewNotice builds a non-persisted presence notice.
func NewNotice(content string, at time.Time) MessageEvent {
	return MessageEvent{
		Username:  SystemAuthor,
		Content:   content,
		Type:      string(domain.KindText),
		CreatedAt: at.UnixMilli(),
	}
}

type RosterUser struct {
	UserID       string `json:"userId"`
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
}

// RosterEvent is the roster-refresh payload. It reflects only the emitting
// process's view of the room.
type RosterEvent struct {
	Room  string       `json:"room"`
	Users []RosterUser `json:"users"`
}

func NewRosterEvent(room string, sessions []domain.Session) RosterEvent {
	return RosterEvent{
		Room: room,
		Users: lo.Map(sessions, func(s domain.Session, _ int) RosterUser {
			return RosterUser{
				UserID:       s.Identity.UserID,
				Username:     s.Identity.Username,
				ConnectionID: s.ConnectionID,
			}
		}),
	}
}
