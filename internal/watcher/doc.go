// Package watcher reports changes to a single file, the lexicon being
// searched, so it can be reloaded while the engine is live.
//
// fsnotify watches the file's directory and events for other names are
// dropped, which keeps atomic saves (write temp file, rename over) visible.
// When fsnotify cannot be initialized the file is polled instead. Bursts of
// events are debounced into one batch.
//
// Usage:
//
//	w, err := watcher.New(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go w.Start(ctx, "lexicon.yaml")
//	for batch := range w.Events() {
//	    reload()
//	}
package watcher
