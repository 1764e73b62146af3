package session

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// dirWatch turns inbound directory events into coalesced wake-ups.
type dirWatch struct {
	w    *fsnotify.Watcher
	wake chan struct{}
	done chan struct{}
	once sync.Once
}

func newDirWatch(dir string) (*dirWatch, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	d := &dirWatch{
		w:    w,
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
	go d.run()
	return d, nil
}

func (d *dirWatch) Wake() <-chan struct{} { return d.wake }

func (d *dirWatch) run() {
	defer close(d.done)
	for {
		select {
		case ev, ok := <-d.w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
				select {
				case d.wake <- struct{}{}:
				default:
				}
			}
		case err, ok := <-d.w.Errors:
			if !ok {
				return
			}
			log.Warn().Msgf("session.dirWatch error err=%v", err)
		}
	}
}

func (d *dirWatch) Close() error {
	var err error
	d.once.Do(func() {
		err = d.w.Close()
		<-d.done
	})
	return err
}
