// Package edmoerr defines the sentinel errors shared across the EDMO
// control-plane server (spec §7), following the teacher's flat
// errors.New-per-condition convention (shared/errors.go) rather than a
// structured-errors library.
package edmoerr

import "errors"

// Codec errors (§4.1, §7 "Malformed frame").
var (
	ErrMalformedFrame    = errors.New("malformed packet frame")
	ErrInvalidInstruction = errors.New("instruction outside known range")
)

// Session errors (§4.6, §7).
var (
	ErrUnknownMotor     = errors.New("motor id outside session range")
	ErrSessionFull      = errors.New("no free motor slots in session")
	ErrSessionNotFound  = errors.New("no active session for identity")
	ErrPlayerNotActive  = errors.New("player is not an active player of this session")
)

// Transport / fused-link errors (§4.2-4.4, §7).
var (
	ErrNoTransport     = errors.New("fused link has no live transport")
	ErrUnknownIdentity = errors.New("identity unknown to backend")
	ErrPortAlreadyOpen = errors.New("serial port already opened")
)

// Logger errors (§4.8, §7 "Logger schema mismatch").
var (
	ErrColumnCountMismatch = errors.New("row column count does not match channel header")
	ErrChannelNotCreated   = errors.New("log channel was not created before write")
	ErrLogNotActive        = errors.New("no recording session is in progress")
)

// Player-channel errors (§4.7).
var (
	ErrChannelClosed = errors.New("player channel is closed")
)
