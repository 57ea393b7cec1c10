package engine

import (
	"errors"
	"sync"
)

// ErrConfirmationPending is returned when a confirmation is requested while
// another one has not been resolved.
var ErrConfirmationPending = errors.New("another confirmation is pending")

// Confirmation is an explicit request/response replacement for blocking
// dialogs: the requesting flow parks on the channel, the rendering side
// resolves or cancels it.
type Confirmation struct {
	Action string
	Detail string

	once   sync.Once
	result chan bool
}

func (c *Confirmation) Resolve() { c.answer(true) }
func (c *Confirmation) Cancel()  { c.answer(false) }

func (c *Confirmation) answer(ok bool) {
	c.once.Do(func() {
		c.result <- ok
		close(c.result)
	})
}

// Confirmer holds at most one pending confirmation.
type Confirmer struct {
	mu      sync.Mutex
	pending *Confirmation
}

func NewConfirmer() *Confirmer {
	return &Confirmer{}
}

// Request registers a confirmation and returns the channel the caller waits
// on. true means confirmed.
func (c *Confirmer) Request(action, detail string) (<-chan bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return nil, ErrConfirmationPending
	}
	conf := &Confirmation{
		Action: action,
		Detail: detail,
		result: make(chan bool, 1),
	}
	c.pending = conf
	return conf.result, nil
}

// Pending returns the confirmation awaiting an answer, or nil.
func (c *Confirmer) Pending() *Confirmation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Resolve answers the pending confirmation and clears it.
func (c *Confirmer) Resolve(ok bool) {
	c.mu.Lock()
	conf := c.pending
	c.pending = nil
	c.mu.Unlock()
	if conf == nil {
		return
	}
	if ok {
		conf.Resolve()
	} else {
		conf.Cancel()
	}
}
