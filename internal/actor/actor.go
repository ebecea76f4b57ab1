// Package actor provides the serialized-mutation runtime shared by the
// combat, deck and rng components: one goroutine per instance draining a
// mailbox, processing each command to completion before the next begins.
// No two commands against the same instance ever observe interleaved
// state, without any locks in the state types themselves.
package actor

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned for commands submitted after Stop.
var ErrStopped = errors.New("actor stopped")

const mailboxSize = 64

type message[S any] struct {
	fn    func(state S) error
	reply chan error
}

// Actor owns a state value of type S and executes closures against it one
// at a time, in arrival order.
type Actor[S any] struct {
	name    string
	state   S
	mailbox chan message[S]
	quit    chan struct{}
	done    chan struct{}
	stop    sync.Once
	logger  *zap.Logger
}

// New starts an actor owning state. The actor goroutine runs until Stop.
func New[S any](name string, state S, logger *zap.Logger) *Actor[S] {
	a := &Actor[S]{
		name:    name,
		state:   state,
		mailbox: make(chan message[S], mailboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		logger:  logger,
	}
	go a.run()
	return a
}

func (a *Actor[S]) run() {
	defer close(a.done)
	for {
		select {
		case <-a.quit:
			// Drain what was already accepted so callers blocked in Do get
			// answers instead of hanging.
			for {
				select {
				case msg := <-a.mailbox:
					msg.reply <- msg.fn(a.state)
				default:
					return
				}
			}
		case msg := <-a.mailbox:
			msg.reply <- msg.fn(a.state)
		}
	}
}

// Do submits fn and waits for it to run against the actor's state. The
// context bounds the wait for mailbox space and for the reply; fn itself
// receives no goroutine of its own and must not block indefinitely.
func (a *Actor[S]) Do(ctx context.Context, fn func(state S) error) error {
	select {
	case <-a.quit:
		return ErrStopped
	default:
	}

	msg := message[S]{fn: fn, reply: make(chan error, 1)}

	select {
	case a.mailbox <- msg:
	case <-a.quit:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-msg.reply:
		return err
	case <-ctx.Done():
		// The command may still execute; the caller just stopped waiting.
		a.logger.Warn("abandoned actor reply", zap.String("actor", a.name))
		return ctx.Err()
	}
}

// Stop shuts the actor down after draining accepted commands and waits for
// the goroutine to exit. Safe to call more than once.
func (a *Actor[S]) Stop() {
	a.stop.Do(func() { close(a.quit) })
	<-a.done
}
