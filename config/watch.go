package config

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config whenever the settings file changes and hands the
// result to onChange. It returns a stop function. Watch failures degrade to
// no live reload rather than an error; the initial Load already happened.
func Watch(onChange func(*Config)) func() {
	path := ConfigPath()
	if path == "" {
		return func() {}
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		// Graceful degradation - continue without watching
		return func() {}
	}
	// Watch the directory: editors replace the file on save, which drops a
	// watch held on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return func() {}
	}

	go func() {
		// Debounce: collect events and reload after a quiet period
		debounce := time.NewTimer(100 * time.Millisecond)
		debounce.Stop()
		dirty := false

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				dirty = true
				debounce.Reset(100 * time.Millisecond)

			case <-debounce.C:
				if !dirty {
					continue
				}
				dirty = false
				if cfg, err := Load(); err == nil {
					onChange(cfg)
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return func() { watcher.Close() }
}
