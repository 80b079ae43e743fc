package errors

import (
	stderrors "errors"
	"fmt"
)

var (
	ErrTextTooShort     = fmt.Errorf("message text is too short")
	ErrFetchFailed      = fmt.Errorf("fetching recent messages failed")
	ErrSurfaceClosed    = fmt.Errorf("chat surface is not running")
	ErrInvalidToken     = fmt.Errorf("invalid identity token")
	ErrNotSignedIn      = fmt.Errorf("no user is signed in")
	ErrUnknownBackend   = fmt.Errorf("unknown store backend")
	ErrUnsupportedOrder = fmt.Errorf("unsupported query order")
	ErrEmptyWords       = fmt.Errorf("no words have been found")
	ErrMissingIdentity  = fmt.Errorf("an identity token is required to sign in")
)

// Is and Join forward to the standard library so callers importing this package keep one errors import.
func Is(err, target error) bool { return stderrors.Is(err, target) }

func Join(errs ...error) error { return stderrors.Join(errs...) }
