// Package watcher reports changes to a fixed set of files, such as a corpus
// file and the configuration that shapes a fitted model.
//
// fsnotify watches each file's parent directory, so editors that save by
// writing a temp file and renaming it over the original are still seen.
// When fsnotify is unavailable the watcher falls back to polling file
// size and modification time. Events for the same file are debounced
// into batches.
//
// Usage:
//
//	w, err := watcher.NewFileWatcher([]string{"corpus.txt"}, watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx) }()
//
//	for batch := range w.Events() {
//	    // refit
//	}
package watcher
