package watcher

import (
	"os"
	"time"
)

// fileState is what polling compares between ticks.
type fileState struct {
	exists  bool
	modTime time.Time
	size    int64
}

// poller detects changes to a fixed set of files by comparing size and
// modification time. Used when fsnotify is not available.
type poller struct {
	paths []string
	state map[string]fileState
}

func newPoller(paths []string) *poller {
	p := &poller{paths: paths, state: make(map[string]fileState, len(paths))}
	for _, path := range paths {
		p.state[path] = stat(path)
	}
	return p
}

// poll returns one event per file whose state changed since the last call.
func (p *poller) poll() []FileEvent {
	var events []FileEvent
	now := time.Now()
	for _, path := range p.paths {
		prev, cur := p.state[path], stat(path)
		p.state[path] = cur

		var op Operation
		switch {
		case !prev.exists && cur.exists:
			op = OpCreate
		case prev.exists && !cur.exists:
			op = OpDelete
		case cur.exists && (prev.modTime != cur.modTime || prev.size != cur.size):
			op = OpModify
		default:
			continue
		}
		events = append(events, FileEvent{Path: path, Operation: op, Timestamp: now})
	}
	return events
}

func stat(path string) fileState {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return fileState{}
	}
	return fileState{exists: true, modTime: info.ModTime(), size: info.Size()}
}
