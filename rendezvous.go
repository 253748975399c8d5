package scriptbridge

import (
	"fmt"
	"time"
)

// callResult carries one host callback invocation's outcome from the host
// loop back to the blocked worker.
type callResult struct {
	value string
	err   error
}

// rendezvous is one synchronous cross-thread callback invocation: the
// parameter travels in, the result comes back on reply. Each invocation owns
// its own reply channel, so overlapping requests can never cross-deliver.
// reply is buffered so the host loop's publish never blocks, even if the
// worker gave up on a bounded wait.
type rendezvous struct {
	name      string
	parameter string
	fn        Callback
	reply     chan callResult
}

// newCallbackBridge wraps a host-loop-confined callback in a closure callable
// from a worker goroutine. Invoking the bridge publishes a rendezvous to the
// host loop and blocks until the loop stores the result and signals reply.
// The worker never observes a partially written result: the channel send
// happens strictly after the callback returns.
func (h *Host) newCallbackBridge(name string, fn Callback) Callback {
	return func(parameter string) (string, error) {
		rz := &rendezvous{
			name:      name,
			parameter: parameter,
			fn:        fn,
			reply:     make(chan callResult, 1),
		}
		h.inbox <- message{call: rz}

		if h.cfg.CallTimeout <= 0 {
			res := <-rz.reply
			return res.value, res.err
		}

		timer := time.NewTimer(h.cfg.CallTimeout)
		defer timer.Stop()
		select {
		case res := <-rz.reply:
			return res.value, res.err
		case <-timer.C:
			return "", fmt.Errorf("%w: %q produced no result within %v", ErrCallbackTimeout, name, h.cfg.CallTimeout)
		}
	}
}

// serveCallback runs one host callback on the host loop and publishes its
// result. A failing callback has no channel back through the engine, so the
// failure escalates instead and no result is published; the worker resumes
// only if a CallTimeout is configured.
func (h *Host) serveCallback(rz *rendezvous) {
	callbackInvocations.Inc()
	value, err := invokeCallback(rz)
	if err != nil {
		callbackFailures.Inc()
		h.escalate(fmt.Errorf("host callback %q: %w", rz.name, err))
		return
	}
	rz.reply <- callResult{value: value}
}

// invokeCallback calls the host function, converting a panic into an error
// so escalation always sees a single failure shape.
func invokeCallback(rz *rendezvous) (value string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rz.fn(rz.parameter)
}
