package session

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// Bootstrap reconstructs the session once per process start. It never blocks the caller:
// the server keeps answering (as anonymous) while the check is in flight.
type Bootstrap struct {
	store *Store
	once  sync.Once
	done  chan struct{}
}

func NewBootstrap(store *Store) *Bootstrap {
	return &Bootstrap{
		store: store,
		done:  make(chan struct{}),
	}
}

// Start launches the check on the first call; later calls only return the done channel
func (b *Bootstrap) Start(ctx context.Context) <-chan struct{} {
	b.once.Do(func() {
		go b.run(ctx)
	})
	return b.done
}

func (b *Bootstrap) run(ctx context.Context) {
	defer close(b.done)

	if b.store.Snapshot().LoggedOutManually {
		log.Debug().Msg("skipping session bootstrap after manual sign-out")
		return
	}

	ok := b.store.CheckSession(ctx)
	log.Info().Bool("signed_in", ok).Msg("session bootstrap finished")
}

// Done is closed once the bootstrap check has finished or was skipped
func (b *Bootstrap) Done() <-chan struct{} {
	return b.done
}
