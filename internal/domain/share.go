package domain

import (
	"time"

	"github.com/google/uuid"
)

// ShareMode is the access level granted by a share link.
type ShareMode string

const (
	ShareModeView ShareMode = "view"
	ShareModeEdit ShareMode = "edit"
)

func (m ShareMode) String() string { return string(m) }

func (m ShareMode) IsValid() bool {
	switch m {
	case ShareModeView, ShareModeEdit:
		return true
	}
	return false
}

// Share is an unauthenticated access grant to a canvas. The token is the
// only credential; mode scopes what the holder may do. ExpiresAt nil means
// the link never expires. PasswordHash, when set on an edit link, gates
// mutations behind a separate password verification step. At most one share
// per canvas may carry ViewIndefiniteLock.
type Share struct {
	ID                 uuid.UUID
	CanvasID           uuid.UUID
	Token              string
	Mode               ShareMode
	ExpiresAt          *time.Time
	PasswordHash       *string
	ViewIndefiniteLock bool
	CreatedAt          time.Time
}

// Expired reports whether the link is past its expiry. The boundary is
// inclusive: a link checked at exactly ExpiresAt is already expired.
func (s *Share) Expired(now time.Time) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return !s.ExpiresAt.After(now)
}

// HasPassword reports whether edit access requires password verification.
func (s *Share) HasPassword() bool {
	return s.PasswordHash != nil && *s.PasswordHash != ""
}
