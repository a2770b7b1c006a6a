package guard

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce is how long to wait after the last write before reloading,
// so editors that write in several chunks trigger a single swap.
const reloadDebounce = 500 * time.Millisecond

// Reloader watches catalog files and hot-swaps the guard's catalogs on change.
type Reloader struct {
	watcher *fsnotify.Watcher
	guard   *Guard
}

// NewReloader creates a file watcher over the given paths. Empty and
// missing paths are skipped, so a guard running on built-in catalogs
// gets a reloader that simply never fires.
func NewReloader(g *Guard, paths []string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %q: %w", p, err)
		}
	}

	return &Reloader{watcher: watcher, guard: g}, nil
}

// Run blocks until ctx is cancelled, reloading catalogs after debounced
// write or create events. Watcher errors are logged and watching continues.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer
	stopTimer := func() {
		if debounce != nil {
			debounce.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			stopTimer()
			debounce = time.AfterFunc(reloadDebounce, r.reload)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "file watcher error: %v\n", err)
		}
	}
}

func (r *Reloader) reload() {
	if err := r.guard.Reload(); err != nil {
		fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "hot-reload: catalogs reloaded (%s)\n", r.guard.CatalogHash())
}
