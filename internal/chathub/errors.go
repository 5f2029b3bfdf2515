package chathub

import "errors"

var (
	// ErrNotInSession is returned when a relay or close finds no bound session.
	// Callers acknowledge it as a no-op.
	ErrNotInSession = errors.New("not in session")
	// ErrAlreadyInSession means a pairing was requested for a user who is
	// already paired. It signals a broken invariant and nothing is created.
	ErrAlreadyInSession = errors.New("already in session")

	ErrNotConnected      = errors.New("user is not connected")
	ErrAlreadyConnected  = errors.New("user already has an active connection")
	ErrSendBufferFull    = errors.New("client send buffer is full")
	ErrUnknownConnection = errors.New("unknown connection")
)
