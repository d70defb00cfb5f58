//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-gateway/domain"
	"context"
	"reflect"
	"time"
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

// Verifier checks the signature and expiry of a bearer credential.
type Verifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

type GroupDirectory interface {
	CreatePrivate(ctx context.Context, participants []domain.UserID) (domain.Group, error)
	CreatePublic(ctx context.Context, participants []domain.UserID, name, image string) (domain.Group, error)
	GetGroup(ctx context.Context, groupID domain.GroupID) (domain.Group, error)
	IsMember(ctx context.Context, userID domain.UserID, groupID domain.GroupID) (bool, error)
	ListGroupIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.GroupID, error)
}

type MessageStore interface {
	Append(ctx context.Context, groupID domain.GroupID, authorID domain.UserID, text string, at time.Time) (domain.Message, error)
	Page(ctx context.Context, groupID domain.GroupID, page, limit int) (domain.MessagePage, error)
	Recent(ctx context.Context, groupID domain.GroupID, limit int) ([]domain.Message, error)
}

// Subscriber is the registry's view of a live connection.
// The registry never owns it: Evict only asks the owner to tear it down.
type Subscriber interface {
	ID() string
	// Deliver must not block. It returns false when the event could not be queued.
	Deliver(evt domain.Event) bool
	Evict(reason error)
}

type IRegistry interface {
	Join(groupID domain.GroupID, sub Subscriber)
	Leave(groupID domain.GroupID, sub Subscriber)
	Broadcast(groupID domain.GroupID, evt domain.Event) int
	Subscribers(groupID domain.GroupID) int
}

// Censor rewrites forbidden words before a message is persisted.
type Censor interface {
	Censor(text string) string
}
