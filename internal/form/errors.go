package form

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// ValidationError reports draft problems found before any network call.
type ValidationError struct {
	Problems []types.ValidationError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Message
	}
	return "invalid menu item: " + strings.Join(msgs, "; ")
}

// PartialCreateError reports an apply-to-all-locations create in which at
// least one location failed. Items created before and after the failure
// are kept. The message is a single aggregate; the per-location failures
// are reachable through Unwrap.
type PartialCreateError struct {
	Created int
	Failed  int
	Total   int
	Err     error
}

func (e *PartialCreateError) Error() string {
	return fmt.Sprintf(
		"%d of %d location creates failed, %d created items were not rolled back",
		e.Failed, e.Total, e.Created,
	)
}

func (e *PartialCreateError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a local draft validation failure.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsPartialCreate reports whether err is a partially failed fan-out.
func IsPartialCreate(err error) bool {
	var target *PartialCreateError
	return errors.As(err, &target)
}
