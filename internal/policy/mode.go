// Package policy guards menu mutations behind an explicit write mode.
package policy

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ModeReadOnly allows listing and weather lookups only.
	ModeReadOnly = "read-only"
	// ModeReadWrite additionally allows create, update, delete and toggle.
	ModeReadWrite = "read-write"
)

// ErrReadOnly is returned when a mutation is attempted in read-only mode.
var ErrReadOnly = errors.New("menu is read-only")

// Guard enforces mode-based mutation policy.
type Guard struct {
	mode string
}

// NewGuard validates mode configuration and returns a mutation guard. An
// empty mode means read-write.
//
// read-write mode requires enableWrite=true.
func NewGuard(mode string, enableWrite bool) (*Guard, error) {
	normalized := strings.ToLower(strings.TrimSpace(mode))
	if normalized == "" {
		normalized = ModeReadWrite
	}

	switch normalized {
	case ModeReadOnly:
		return &Guard{mode: normalized}, nil
	case ModeReadWrite:
		if !enableWrite {
			return nil, fmt.Errorf("read-write mode requires DGK_ENABLE_WRITE=true")
		}
		return &Guard{mode: normalized}, nil
	default:
		return nil, fmt.Errorf("invalid mode %q (allowed: %s|%s)", normalized, ModeReadOnly, ModeReadWrite)
	}
}

// ReadWrite returns a guard that allows every mutation, for callers that
// have already checked write access.
func ReadWrite() *Guard {
	return &Guard{mode: ModeReadWrite}
}

// Mode returns the resolved mode. A nil guard is read-only.
func (g *Guard) Mode() string {
	if g == nil {
		return ModeReadOnly
	}
	return g.mode
}

// AuthorizeMutation allows or denies the named mutation.
func (g *Guard) AuthorizeMutation(op string) error {
	if g.Mode() == ModeReadWrite {
		return nil
	}
	name := strings.TrimSpace(op)
	if name == "" {
		name = "unknown"
	}
	return fmt.Errorf("%w: %s requires %s mode", ErrReadOnly, name, ModeReadWrite)
}
