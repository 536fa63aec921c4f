package company

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidName is returned for company ids and file names that are empty,
// too long or could address anything outside their folder.
var ErrInvalidName = errors.New("invalid name")

const maxNameLength = 255

// ValidateName checks a company id, file name or plot name.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("%w: empty", ErrInvalidName)
	case len(name) > maxNameLength:
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidName, maxNameLength)
	case strings.ContainsAny(name, "/\\\x00"):
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidName, name)
	case strings.Contains(name, ".."):
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
