//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"sendify-chat/domain"
	"sendify-chat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink is one local connection able to receive frames.
// Consume must not block on a slow client.
type EventSink interface {
	ID() string
	Consume(ctx context.Context, frame event.Frame) error
}

// IRegistry is the process-local room membership registry.
type IRegistry interface {
	Join(connectionID string, identity domain.Identity, room string) (string, error)
	Leave(connectionID string) (domain.Session, bool)
	RosterOf(room string) []domain.Session
	Lookup(connectionID string) (domain.Session, bool)
}

// IBus delivers room-scoped events locally and through the relay.
type IBus interface {
	Subscribe(room string, sink EventSink)
	Unsubscribe(room string, connectionID string)
	UnsubscribeAll(connectionID string)
	Publish(ctx context.Context, room, name string, payload any) error
	PublishExcept(ctx context.Context, room, name string, payload any, except string) error
	DeliverRemote(ctx context.Context, envelope event.Envelope)
}

// Relay is the cross-process publish/subscribe channel. Best effort.
type Relay interface {
	Publish(ctx context.Context, envelope event.Envelope) error
	Subscribe(ctx context.Context) (<-chan event.Envelope, error)
	Ping(ctx context.Context) error
	Close() error
}

// StoreClient persists messages on the store service.
type StoreClient interface {
	CreateMessage(ctx context.Context, record domain.StoreRecord) error
}

// Moderator masks censored words. An empty word list means the text is clean.
type Moderator interface {
	Censor(text string) (string, []string)
}

// AccountClient talks to the account service on behalf of a client session.
type AccountClient interface {
	Profile(ctx context.Context, accessToken string) (domain.Profile, error)
	Refresh(ctx context.Context, refreshToken string) (domain.TokenPair, error)
}

// TokenStore keeps the client's token pair between runs.
type TokenStore interface {
	Load() (domain.TokenPair, error)
	Save(tokens domain.TokenPair) error
	Clear() error
}
