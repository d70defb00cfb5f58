package domain

import "time"

// Identity is what the messaging core reads from a verified credential.
type Identity struct {
	UserID    UserID
	Role      string
	ExpiresAt time.Time
}

func (i Identity) ExpiredAt(now time.Time) bool {
	return !i.ExpiresAt.IsZero() && !now.Before(i.ExpiresAt)
}
