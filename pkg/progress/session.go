package progress

import (
	"context"
	"os"
	"os/signal"
	"sync"
)

// Session flushes a store's elapsed time once, when its context ends or
// one of the watched signals arrives. The flush is fire-and-forget: a
// failed write is only logged by the store.
type Session struct {
	store  *Store
	cancel context.CancelFunc
	done   chan struct{}

	once    sync.Once
	flushed int
}

// WatchSession starts watching for the end of the session
func WatchSession(ctx context.Context, store *Store, signals ...os.Signal) *Session {
	ctx, cancel := context.WithCancel(ctx)

	s := &Session{
		store:  store,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	sigCh := make(chan os.Signal, 1)
	if len(signals) > 0 {
		signal.Notify(sigCh, signals...)
	}

	go func() {
		defer close(s.done)
		defer signal.Stop(sigCh)

		select {
		case <-ctx.Done():
		case <-sigCh:
		}
		s.flush()
	}()

	return s
}

// Done is closed once the session has been flushed
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Stop ends the session, waits for the flush and returns the minutes added
func (s *Session) Stop() int {
	s.cancel()
	<-s.done
	return s.flushed
}

func (s *Session) flush() {
	s.once.Do(func() {
		s.flushed = s.store.FlushSession()
	})
}
