// Package domain contains core concepts of the group chat.
// This file defines Message events and their ordering.
// Messages are immutable once persisted.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message is a persisted chat message.
// Seq is assigned by the store and breaks ties between messages of the same group
// created at the same instant.
type Message struct {
	ID        uuid.UUID `json:"id"`
	GroupID   GroupID   `json:"group_id"`
	AuthorID  UserID    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
	Seq       uint64    `json:"seq"`
}

// NewerThan orders messages newest-first.
// Messages of different groups are compared by time, then by group id.
func (m Message) NewerThan(other Message) bool {
	if !m.CreatedAt.Equal(other.CreatedAt) {
		return m.CreatedAt.After(other.CreatedAt)
	}
	if m.GroupID != other.GroupID {
		return strings.Compare(string(m.GroupID), string(other.GroupID)) > 0
	}
	return m.Seq > other.Seq
}
