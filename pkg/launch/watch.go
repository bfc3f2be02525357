package launch

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/mixy/pkg/observability"
)

// Watcher reports changes to the mixins directory. Bindings are fixed once the
// primary entry point runs, so changes only take effect on the next launch.
type Watcher struct {
	dir     string
	log     logrus.FieldLogger
	watcher *fsnotify.Watcher

	// OnChange is called for every relevant event, from the Run goroutine.
	// A panic in OnChange is logged and the watcher keeps running.
	OnChange func(event fsnotify.Event)
}

// NewWatcher starts watching dir, creating it if missing
func NewWatcher(dir string, log logrus.FieldLogger) (*Watcher, error) {
	if log == nil {
		log = logrus.New()
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create mixins directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch mixins dir: %w", err)
	}

	return &Watcher{dir: dir, log: log, watcher: watcher}, nil
}

// Run processes events until ctx is cancelled, then closes the watcher
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()
	w.log.Infof("Watching %s for mixin changes", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.WithError(err).Error("Mixins watcher error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return
	}

	w.log.WithField("op", event.Op.String()).
		Warnf("Mixin archive %s changed; restart to apply", event.Name)

	if w.OnChange != nil {
		w.notify(event)
	}
}

// notify keeps a panicking callback from stopping the watch loop
func (w *Watcher) notify(event fsnotify.Event) {
	defer observability.RecoverPanic(w.log, "mixins watcher")
	w.OnChange(event)
}
