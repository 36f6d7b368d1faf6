// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the webhook pipeline. Only authentication and
// persistence failures are allowed to fail a request; everything else
// is contained inside the pipeline.
var (
	// ErrTeamNotFound is returned when the claimed team id has no
	// registered secret.
	ErrTeamNotFound = errors.New("team not found")

	// ErrSecretMismatch is returned when the presented secret does not
	// exactly match the stored one for the claimed team.
	ErrSecretMismatch = errors.New("secret does not match")

	// ErrEmptyPush is returned by normalization when a push payload
	// carries no commits. The pipeline treats it as a silent no-op.
	ErrEmptyPush = errors.New("push contains no commits")

	// ErrDeliveryPermanent marks a chat delivery failure that must not
	// be retried (for example the bot was removed from the group).
	ErrDeliveryPermanent = errors.New("permanent delivery failure")
)

// IsAuthError reports whether err is one of the authentication failures
// that map to a 401 webhook response.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrTeamNotFound) || errors.Is(err, ErrSecretMismatch)
}

// SummarizeError carries detail about an exhausted external model call.
// It never escapes the summarizer; the fallback path records it so the
// report source can be logged.
type SummarizeError struct {
	Attempts int
	Last     error
}

func (e *SummarizeError) Error() string {
	return fmt.Sprintf("model call failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *SummarizeError) Unwrap() error { return e.Last }
