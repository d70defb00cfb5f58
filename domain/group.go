// Package domain contains core concepts of the group chat.
// This file defines groups and their fixed membership.
package domain

import (
	"time"

	"github.com/samber/lo"
)

type UserID string

type GroupID string

type GroupKind string

const (
	KindPrivate GroupKind = "PRIVATE"
	KindPublic  GroupKind = "PUBLIC"
)

// Group is a chat room whose members are fixed at creation.
// Name is optional for two-party private groups.
type Group struct {
	ID        GroupID   `json:"id"`
	Name      string    `json:"name,omitempty"`
	Kind      GroupKind `json:"kind"`
	Image     string    `json:"image,omitempty"`
	Members   []UserID  `json:"members"`
	CreatedAt time.Time `json:"created_at"`
}

func (g Group) HasMember(userID UserID) bool {
	return lo.Contains(g.Members, userID)
}
