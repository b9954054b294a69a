package checkout

import (
	"errors"
	"fmt"
)

// ErrValidation marks input the client has to fix.
var ErrValidation = errors.New("validation")

func newValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func wrapValidation(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
