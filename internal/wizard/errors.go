package wizard

import "errors"

var (
	// ErrNoSession is returned by a Registry when the user has no active session.
	ErrNoSession = errors.New("no active session")

	// errStale marks a click on an option that no longer exists.
	errStale = notice("That option is no longer available.")
)

// InputError is a user input problem. Its message is shown to the user as is
// and the session stays where it was.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string {
	return e.Msg
}

func inputError(msg string) *InputError {
	return &InputError{Msg: msg}
}

// notice is a short text used to answer a click without changing anything.
type notice string

func (n notice) Error() string {
	return string(n)
}
