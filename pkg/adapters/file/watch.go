package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce coalesces bursts of file events, such as editors writing a
// temp file and renaming it.
const WatchDebounce = 100 * time.Millisecond

// Watch reports the path of every changed leaf file until ctx is done.
// Directories are watched as a whole; single files through their parent
// directory, so that atomic renames are seen.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range l.Paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch leaves: %w", err)
		}
		dir := abs
		if !info.IsDir() {
			dir = filepath.Dir(abs)
			files[abs] = true
		} else {
			dirs[abs] = true
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	relevant := func(name string) bool {
		abs, err := filepath.Abs(name)
		if err != nil {
			return false
		}
		return files[abs] || (dirs[filepath.Dir(abs)] && isLeafFile(abs))
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer watcher.Close()

		var (
			pending string
			timer   *time.Timer
			fire    <-chan time.Time
		)
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 || !relevant(event.Name) {
					continue
				}
				pending = event.Name
				if timer == nil {
					timer = time.NewTimer(WatchDebounce)
				} else {
					timer.Reset(WatchDebounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				select {
				case out <- pending:
				case <-ctx.Done():
					return
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return out, nil
}
