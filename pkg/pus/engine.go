package pus

import (
	"errors"
	"fmt"
	"log"
)

// CommandExecutionStatus is a handler's report of where a command's
// verification sequence stands when HandleTc returns (spec §4.3).
type CommandExecutionStatus int

const (
	// StatusStarted means start-success has been emitted and the service
	// will emit completion asynchronously, later.
	StatusStarted CommandExecutionStatus = iota
	// StatusCompleted means start-success and completion-success have
	// already been emitted.
	StatusCompleted
	// StatusFailed means start-success and completion-failure(1) have
	// already been emitted, or, when the command failed before starting,
	// a start-failure has.
	StatusFailed
)

// Handler is the capability a PUS service provides to an Engine: parse its
// own command type out of TC application data, and act on an accepted
// command (spec §9 "the engine is polymorphic over the capability
// {parse, handle}").
type Handler interface {
	APID() uint16
	ServiceID() uint8
	ParseCommand(subservice uint8, appData []byte) (cmd any, err error)
	HandleTc(token TokenAccepted, cmd any) (CommandExecutionStatus, error)
}

// Engine is the base contract every PUS service embeds (spec §4.3). It
// owns nothing about transport; it is handed raw TC bytes and a Reporter
// and drives the accept/start/complete verification sequence around the
// handler's own parsing and execution.
type Engine struct {
	Reporter *Reporter
	Handler  Handler
}

// NewEngine constructs an Engine for a single service.
func NewEngine(reporter *Reporter, handler Handler) *Engine {
	return &Engine{Reporter: reporter, Handler: handler}
}

// HandleTcBytes implements spec §4.3's handleTcBytes. Unknown APID/service
// and parse failures are reported per the policy table in spec §7; a
// failed TM emission is logged and otherwise non-fatal to the caller's
// loop, per spec §7's closing note.
func (e *Engine) HandleTcBytes(raw []byte) error {
	tc, err := ParseTCPacket(raw)
	if err != nil {
		// Sender is unknown: no acceptance-failure TM can be addressed.
		return fmt.Errorf("%w: %v", ErrPusError, err)
	}

	token := e.Reporter.Register(tc)

	if tc.Primary.APID != e.Handler.APID() {
		return fmt.Errorf("%w: %d", ErrUnknownApid, tc.Primary.APID)
	}
	if tc.Secondary.Service != e.Handler.ServiceID() {
		return fmt.Errorf("%w: %d", ErrUnknownService, tc.Secondary.Service)
	}

	cmd, perr := e.Handler.ParseCommand(tc.Secondary.Subservice, tc.AppData)
	if perr != nil {
		if ferr := e.Reporter.AcceptFailure(token, AcceptanceErrorCommandParseError); ferr != nil {
			log.Printf("[pus] failed to send acceptance-failure tm: %v", ferr)
		}
		return fmt.Errorf("%w: %v", ErrCommandParseError, perr)
	}

	accepted, aerr := e.Reporter.AcceptSuccess(token)
	if aerr != nil {
		log.Printf("[pus] failed to send acceptance-success tm: %v", aerr)
		return fmt.Errorf("%w: %v", ErrSendVerificationTm, aerr)
	}

	status, herr := e.Handler.HandleTc(accepted, cmd)
	if herr != nil {
		log.Printf("[pus] service %d handler error: %v", e.Handler.ServiceID(), herr)
	}
	_ = status
	return nil
}

// Handle is the synchronous convenience envelope from spec §4.3: it emits
// start-success, runs f, then emits completion-success or
// completion-failure(1) based on the result.
func (e *Engine) Handle(token TokenAccepted, f func() bool) (CommandExecutionStatus, error) {
	started, err := e.Reporter.StartSuccess(token)
	if err != nil {
		return StatusFailed, err
	}
	if f() {
		if err := e.Reporter.CompleteSuccess(started); err != nil {
			return StatusFailed, err
		}
		return StatusCompleted, nil
	}
	if err := e.Reporter.CompleteFailure(started, 1); err != nil {
		return StatusFailed, err
	}
	return StatusFailed, nil
}

// AppTmResult is what HandleWithTm's closure returns on success: the
// subservice and byte payload of the application TM to emit after
// completion-success.
type AppTmResult struct {
	Subservice uint8
	Data       []byte
}

// ErrHandlerFailed is a generic sentinel an f passed to HandleWithTm may
// wrap to signal failure without a more specific error.
var ErrHandlerFailed = errors.New("pus: handler failed")

// HandleWithTm is the synchronous convenience envelope from spec §4.3 that
// also emits an application TM on success.
func (e *Engine) HandleWithTm(token TokenAccepted, f func() (AppTmResult, error)) (CommandExecutionStatus, error) {
	started, err := e.Reporter.StartSuccess(token)
	if err != nil {
		return StatusFailed, err
	}

	result, ferr := f()
	if ferr != nil {
		if err := e.Reporter.CompleteFailure(started, 1); err != nil {
			return StatusFailed, err
		}
		return StatusFailed, ferr
	}

	if err := e.Reporter.CompleteSuccess(started); err != nil {
		return StatusFailed, err
	}
	if err := e.Reporter.SendAppTm(e.Handler.ServiceID(), result.Subservice, result.Data); err != nil {
		return StatusCompleted, err
	}
	return StatusCompleted, nil
}
