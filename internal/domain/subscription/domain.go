package subscription

import (
	"errors"
	"time"
)

var (
	ErrInvalid  = errors.New("subscription: endpoint required")
	ErrNotFound = errors.New("subscription: not found")
)

// Keys is the encryption material the push transport needs to address
// one device. Opaque to the registry.
type Keys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type Subscription struct {
	Endpoint  string    `json:"endpoint"`
	Keys      Keys      `json:"keys"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Subscription) Clone() *Subscription {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

type Stats struct {
	Total  int        `json:"total"`
	Oldest *time.Time `json:"oldest"`
	Newest *time.Time `json:"newest"`
}
