package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnparsableLocation = errors.New("unparsable location")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrNotOwner           = errors.New("caller does not own this land")
	ErrSameOwner          = errors.New("land is already owned by that address")
)
