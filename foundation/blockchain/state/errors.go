package state

import (
	"errors"
	"fmt"
)

// Error represents a business rule failure with a stable code that is
// safe to return to a client.
type Error struct {
	Code int
	Msg  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Msg, e.Code)
}

// Set of business rule errors.
var (
	ErrGenesisExists       = &Error{Code: 1001, Msg: "genesis block already exists"}
	ErrInsufficientBalance = &Error{Code: 1002, Msg: "insufficient balance"}
	ErrTxVerify            = &Error{Code: 1003, Msg: "transaction verification failed"}
	ErrNoMiningKey         = &Error{Code: 1004, Msg: "mining key absent"}
	ErrMiningFailed        = &Error{Code: 1005, Msg: "mining failed"}
	ErrNoGenesis           = &Error{Code: 1006, Msg: "genesis block missing"}
	ErrInvalidAddress      = &Error{Code: 1007, Msg: "invalid address"}
	ErrNoSigningKey        = &Error{Code: 1008, Msg: "signing key not found"}
	ErrInvalidAmount       = &Error{Code: 1009, Msg: "invalid amount"}
)

// IsError checks if an error of type Error exists.
func IsError(err error) bool {
	var se *Error
	return errors.As(err, &se)
}

// GetError returns a copy of the Error pointer.
func GetError(err error) *Error {
	var se *Error
	if !errors.As(err, &se) {
		return nil
	}
	return se
}
