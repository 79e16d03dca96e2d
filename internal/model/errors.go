package model

import "errors"

// Store sentinels shared by the MySQL repositories and the in-memory
// store so that the domain packages can match them with errors.Is
// regardless of which backend is wired.
var (
	// ErrConcertNotFound is returned when no concert has the requested ID.
	ErrConcertNotFound = errors.New("concert not found")
	// ErrOrderNotFound is returned when no order matches a lookup.
	ErrOrderNotFound = errors.New("order not found")
	// ErrTicketUnavailable is returned when a ticket expected to be
	// AVAILABLE (or RESERVED, when selling) is in another state.  The
	// store leaves every ticket untouched when it returns this error.
	ErrTicketUnavailable = errors.New("ticket is not in the expected state")
	// ErrTicketNotHeld is returned when releasing a ticket that is
	// already AVAILABLE.
	ErrTicketNotHeld = errors.New("ticket is not reserved or sold")
	// ErrDuplicateConfirmation is returned when an order is stored with a
	// confirmation number that is already taken.  Nothing is written.
	ErrDuplicateConfirmation = errors.New("confirmation number already used")
)
