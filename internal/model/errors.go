package model

import (
	"errors"
	"fmt"
)

// ErrExtractionSkip marks a candidate without a usable title. Such
// candidates are dropped silently and never abort the batch.
var ErrExtractionSkip = errors.New("candidate has no usable title")

// NavigationError is a DNS, connection or timeout failure while
// reaching a URL. Fatal for that URL once the retry budget is spent.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ValidationFailure is a page that loaded but is blocked, an error
// page, or carries no product content. Triggers the recovery cascade.
type ValidationFailure struct {
	URL       string
	Reason    string
	BlockedBy string
}

func (e *ValidationFailure) Error() string {
	if e.BlockedBy != "" {
		return fmt.Sprintf("page %s failed validation (%s), blocked by %s", e.URL, e.Reason, e.BlockedBy)
	}
	return fmt.Sprintf("page %s failed validation: %s", e.URL, e.Reason)
}

// AvailabilityError is a failure while checking one product. The
// product is recorded with status error and the run continues.
type AvailabilityError struct {
	URL string
	Err error
}

func (e *AvailabilityError) Error() string {
	return fmt.Sprintf("availability check for %s failed: %v", e.URL, e.Err)
}

func (e *AvailabilityError) Unwrap() error { return e.Err }
