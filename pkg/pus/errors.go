package pus

import "fmt"

// AcceptanceError is the numeric taxonomy used in verification TM failure
// codes (spec §4.3).
type AcceptanceError uint8

const (
	AcceptanceErrorPusError                AcceptanceError = 1
	AcceptanceErrorUnknownApid              AcceptanceError = 2
	AcceptanceErrorUnknownService           AcceptanceError = 3
	AcceptanceErrorUnknownSubservice        AcceptanceError = 4
	AcceptanceErrorCommandParseError        AcceptanceError = 5
	AcceptanceErrorArgumentError            AcceptanceError = 6
	AcceptanceErrorServiceDisconnected      AcceptanceError = 7
	AcceptanceErrorSendVerificationTmFailed AcceptanceError = 8
)

// Sentinel errors returned by HandleTcBytes, matching the policy table in
// spec §4.3/§7.
var (
	ErrPusError           = fmt.Errorf("pus: failed to parse packet")
	ErrUnknownApid        = fmt.Errorf("pus: unknown apid")
	ErrUnknownService     = fmt.Errorf("pus: unknown service")
	ErrCommandParseError  = fmt.Errorf("pus: command parse error")
	ErrSendVerificationTm = fmt.Errorf("pus: failed to send verification tm")
)

// ErrCantSendDirectTm is returned when a TM cannot be serialised or
// enqueued onto its egress channel (spec §4.3 "EcssTmtcError::CantSendDirectTm").
var ErrCantSendDirectTm = fmt.Errorf("pus: cannot send tm")
