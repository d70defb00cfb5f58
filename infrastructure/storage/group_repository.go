package storage

import (
	"chat-gateway/domain"
	"chat-gateway/errors"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type GroupRepository struct {
	db       *badger.DB
	log      *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

func NewGroupRepository(db *badger.DB, log *slog.Logger) *GroupRepository {
	return &GroupRepository{db: db, log: log, validate: validator.New(), now: time.Now}
}

type privateGroupRequest struct {
	Participants []domain.UserID `validate:"min=2,dive,required,max=128,excludes=:"`
}

type publicGroupRequest struct {
	Participants []domain.UserID `validate:"min=1,dive,required,max=128,excludes=:"`
	Name         string          `validate:"required,max=100"`
	Image        string          `validate:"omitempty,max=2048"`
}

// CreatePrivate creates a new two-party (or more) group. Calling it twice with
// the same participants creates two distinct groups.
func (r *GroupRepository) CreatePrivate(ctx context.Context, participants []domain.UserID) (domain.Group, error) {
	members := lo.Uniq(participants)
	if len(members) < 2 {
		return domain.Group{}, fmt.Errorf("%w: a private group needs 2 distinct participants, got %d",
			errors.ErrNotEnoughParticipants, len(members))
	}
	if err := r.validate.Struct(privateGroupRequest{Participants: members}); err != nil {
		return domain.Group{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return r.create(ctx, domain.Group{Kind: domain.KindPrivate, Members: members})
}

func (r *GroupRepository) CreatePublic(ctx context.Context, participants []domain.UserID, name, image string) (domain.Group, error) {
	members := lo.Uniq(participants)
	request := publicGroupRequest{Participants: members, Name: strings.TrimSpace(name), Image: image}
	if err := r.validate.Struct(request); err != nil {
		return domain.Group{}, fmt.Errorf("%w: %v", errors.ErrValidation, err)
	}
	return r.create(ctx, domain.Group{
		Kind:    domain.KindPublic,
		Name:    request.Name,
		Image:   image,
		Members: members,
	})
}

// create persists the group and its membership index in a single transaction.
func (r *GroupRepository) create(ctx context.Context, group domain.Group) (domain.Group, error) {
	if err := ctx.Err(); err != nil {
		return domain.Group{}, err
	}
	group.ID = domain.GroupID(uuid.NewString())
	group.CreatedAt = r.now().UTC()

	err := r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(groupKey(group.ID), EncodeGroup(group)); err != nil {
			return err
		}
		for _, member := range group.Members {
			if err := txn.Set(memberKey(member, group.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return domain.Group{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}

	r.log.Debug("Group created", "group_id", group.ID, "kind", group.Kind, "members", len(group.Members))
	return group, nil
}

func (r *GroupRepository) GetGroup(ctx context.Context, groupID domain.GroupID) (domain.Group, error) {
	if err := ctx.Err(); err != nil {
		return domain.Group{}, err
	}
	var group domain.Group
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(groupKey(groupID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			group, err = DecodeGroup(val)
			return err
		})
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return domain.Group{}, errors.ErrUnknownGroup
	case err != nil:
		return domain.Group{}, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return group, nil
}

// IsMember answers from the membership index, so unknown groups are simply
// groups nobody belongs to.
func (r *GroupRepository) IsMember(ctx context.Context, userID domain.UserID, groupID domain.GroupID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	err := r.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(memberKey(userID, groupID))
		return err
	})
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return true, nil
}

func (r *GroupRepository) ListGroupIDsForUser(ctx context.Context, userID domain.UserID) ([]domain.GroupID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []domain.GroupID
	err := r.db.View(func(txn *badger.Txn) error {
		prefix := memberUserPrefix(userID)
		options := badger.DefaultIteratorOptions
		options.PrefetchValues = false
		options.Prefix = prefix
		it := txn.NewIterator(options)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, domain.GroupID(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrStorage, err)
	}
	return ids, nil
}
