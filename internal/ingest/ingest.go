// Package ingest discovers report documents on disk: a one-shot directory
// scan for batch runs and an fsnotify watcher for the daemon inbox.
package ingest

import "sync"

// Document is one discovered report file.
type Document struct {
	Path         string
	HashHex      string
	Deduplicated bool
	Err          string
}

// DirStats summarizes a directory scan.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Accepted     uint32
	Deduplicated uint32
	Failed       uint32
}

// Deduper remembers content hashes so the same scan is not processed twice.
type Deduper struct {
	mu   sync.Mutex
	seen map[string]string
}

func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]string)}
}

// Seen records hash for path and reports whether another path already had it.
func (d *Deduper) Seen(hash, path string) (first string, dup bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.seen[hash]; ok {
		return p, true
	}
	d.seen[hash] = path
	return path, false
}
