package message

import "errors"

var (
	errEmpty     = errors.New("message: empty wire payload")
	errNotHeader = errors.New("message: first record is not a Header")
)
