package scriptbridge

import (
	"errors"
	"sync"
)

// message is one unit of work for the host loop: either a pending callback
// rendezvous or a finished request whose completion is due. Exactly one
// field is set.
type message struct {
	call *rendezvous
	done *request
}

// Host owns the loop goroutine that all host callbacks and completion
// handlers are confined to. The embedder's goroutines submit work through
// Run and RunSync and never block on script execution.
type Host struct {
	cfg Config

	// inbox is the loop's notification channel. It is unbuffered: a send
	// completes only once the loop has taken the message, which gives the
	// happens-before edge that makes request outcome fields safe to read
	// in completion handlers.
	inbox chan message

	mu        sync.Mutex
	closed    bool
	inflight  sync.WaitGroup
	closeOnce sync.Once
	loopDone  chan struct{}
}

// New starts a Host and its loop goroutine. cfg.EngineFactory is required.
func New(cfg Config) (*Host, error) {
	if cfg.EngineFactory == nil {
		return nil, errors.New("scriptbridge: Config.EngineFactory is required")
	}
	h := &Host{
		cfg:      cfg.withDefaults(),
		inbox:    make(chan message),
		loopDone: make(chan struct{}),
	}
	go h.loop()
	return h, nil
}

// Close rejects new Run calls, waits for in-flight requests to deliver their
// completions, then stops the loop. Safe to call more than once, but must
// not be called from a callback or completion handler: those run on the loop
// Close is waiting for.
func (h *Host) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		h.inflight.Wait()
		close(h.inbox)
	})
	<-h.loopDone
}

// loop serializes host callbacks and completion deliveries. It is the only
// goroutine that ever runs either.
func (h *Host) loop() {
	defer close(h.loopDone)
	for msg := range h.inbox {
		switch {
		case msg.call != nil:
			h.serveCallback(msg.call)
		case msg.done != nil:
			h.complete(msg.done)
		}
	}
}

// escalate applies the top-level unhandled-error policy for failures that
// have no return channel. Runs on the host loop.
func (h *Host) escalate(err error) {
	if h.cfg.OnUnhandled != nil {
		h.cfg.OnUnhandled(err)
		return
	}
	panic(err)
}
