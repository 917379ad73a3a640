package runtime

import (
	"context"
	"encoding/json"
	"sync"

	"sendify-chat/domain/event"

	"github.com/google/uuid"
)

type recordingSink struct {
	id     string
	mu     sync.Mutex
	frames []event.Frame
}

func newRecordingSink() *recordingSink {
	return &recordingSink{id: uuid.NewString()}
}

func (s *recordingSink) ID() string { return s.id }

func (s *recordingSink) Consume(_ context.Context, frame event.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, frame)
	return nil
}

func (s *recordingSink) Frames() []event.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Frame(nil), s.frames...)
}

// Messages returns the message events received, notices included.
func (s *recordingSink) Messages() []event.MessageEvent {
	var out []event.MessageEvent
	for _, f := range s.Frames() {
		if f.Event != event.NameMessage {
			continue
		}
		var m event.MessageEvent
		if err := json.Unmarshal(f.Data, &m); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// ChatMessages filters out presence notices.
func (s *recordingSink) ChatMessages() []event.MessageEvent {
	var out []event.MessageEvent
	for _, m := range s.Messages() {
		if m.Username != event.SystemAuthor {
			out = append(out, m)
		}
	}
	return out
}

func (s *recordingSink) Rosters() []event.RosterEvent {
	var out []event.RosterEvent
	for _, f := range s.Frames() {
		if f.Event != event.NameRoomRoster {
			continue
		}
		var r event.RosterEvent
		if err := json.Unmarshal(f.Data, &r); err == nil {
			out = append(out, r)
		}
	}
	return out
}
