package scriptbridge

import "errors"

var (
	// ErrHostClosed is returned by Run after Close has been called.
	ErrHostClosed = errors.New("scriptbridge: host is closed")

	// ErrMissingCompletion is returned by Run when no completion handler
	// is supplied.
	ErrMissingCompletion = errors.New("scriptbridge: completion handler is required")

	// ErrCallbackDefinition is returned when a callback map entry is not a
	// supported function shape. Raised before any work is scheduled.
	ErrCallbackDefinition = errors.New("scriptbridge: error in callback definition")

	// ErrCallbackTimeout wraps the error a script receives when a host
	// callback does not produce a result within Config.CallTimeout.
	ErrCallbackTimeout = errors.New("scriptbridge: host callback timed out")
)

// ScriptError is returned by RunSync when the engine reports a failure.
// Message is the engine's diagnostic text, byte-for-byte the same string an
// asynchronous completion handler receives alongside hasError=true.
type ScriptError struct {
	Message string
}

func (e *ScriptError) Error() string { return e.Message }
