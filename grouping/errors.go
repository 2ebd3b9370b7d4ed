package grouping

import (
	"errors"
	"fmt"
)

// MinGroups is the smallest group count the allocators accept.
const MinGroups = 2

// ErrInvalidGroupCount is returned when the requested group count is out of range.
var ErrInvalidGroupCount = errors.New("invalid group count")

// ValidateGroupCount checks n against [MinGroups, limit]. A limit of zero or less
// disables the upper bound.
func ValidateGroupCount(n, limit int) error {
	if n < MinGroups {
		return fmt.Errorf("%w: %d, must be at least %d", ErrInvalidGroupCount, n, MinGroups)
	}
	if limit > 0 && n > limit {
		return fmt.Errorf("%w: %d, must be at most %d", ErrInvalidGroupCount, n, limit)
	}
	return nil
}
