package ledger

import "errors"

// ErrNotFound is returned when the referenced transaction id does not exist.
var ErrNotFound = errors.New("transaction not found")

// ErrInvalidArgument is returned for pagination or filter values that do not
// parse to non-negative integers.
var ErrInvalidArgument = errors.New("invalid argument")
