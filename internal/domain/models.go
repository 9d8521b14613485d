package domain

import (
	"time"
)

// SessionEntry is one key/value pair in a checkout session's store
type SessionEntry struct {
	Scope     string
	Key       string
	Value     []byte // JSON
	UpdatedAt time.Time
}

// IdempotencyKey stores the first response given for a support API write
type IdempotencyKey struct {
	Key         string
	RequestHash string
	// ResponseStatus is 0 while the first request holding the key is still running
	ResponseStatus int
	ResponseBody   []byte
	CreatedAt      time.Time
}

// InProgress reports whether the key is reserved but has no stored response yet
func (k IdempotencyKey) InProgress() bool {
	return k.ResponseStatus == 0
}
