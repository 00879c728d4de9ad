// Package nickname enforces validation and case-insensitive uniqueness of
// chat handles.
package nickname

import (
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/herocast/herocast/pkg/errors"
)

const (
	// MinLength is the shortest accepted nickname.
	MinLength = 3
	// MaxLength is the longest accepted nickname.
	MaxLength = 20
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Registry tracks reserved nicknames. Uniqueness is case-insensitive but
// the original casing is preserved.
type Registry struct {
	mu       sync.RWMutex
	reserved map[string]string // case-folded -> original casing
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		reserved: make(map[string]string),
	}
}

// Validate checks a candidate without reserving it. Rules are applied in
// order and the first failure wins.
func (r *Registry) Validate(candidate string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.validateLocked(candidate)
}

// Reserve re-validates and inserts the candidate as one atomic step, so two
// concurrent reservations of the same case-folded name cannot both win.
func (r *Registry) Reserve(candidate string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.validateLocked(candidate); err != nil {
		return err
	}

	r.reserved[strings.ToLower(candidate)] = candidate
	return nil
}

// Release removes a reservation. Releasing an unknown name is a no-op.
func (r *Registry) Release(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.reserved, strings.ToLower(name))
}

// Len returns the number of reserved nicknames.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reserved)
}

func (r *Registry) validateLocked(candidate string) error {
	if candidate == "" {
		return errors.New(errors.ErrorTypeValidation, "NICKNAME_EMPTY", "Nickname cannot be empty")
	}

	// Length is counted in characters, not bytes, so a multi-byte
	// candidate still fails the length rule before the charset rule.
	length := utf8.RuneCountInString(candidate)

	if length < MinLength {
		return errors.New(errors.ErrorTypeValidation, "NICKNAME_TOO_SHORT", "Nickname must be at least 3 characters")
	}

	if length > MaxLength {
		return errors.New(errors.ErrorTypeValidation, "NICKNAME_TOO_LONG", "Nickname cannot exceed 20 characters")
	}

	if !namePattern.MatchString(candidate) {
		return errors.New(errors.ErrorTypeValidation, "NICKNAME_CHARSET", "Nickname can only contain letters, numbers, and underscores")
	}

	if _, taken := r.reserved[strings.ToLower(candidate)]; taken {
		return errors.New(errors.ErrorTypeConflict, "NICKNAME_TAKEN", "Nickname is already taken")
	}

	return nil
}
