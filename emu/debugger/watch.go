package debugger

import "fmt"

// WatchKind selects what a WatchTarget reads.
type WatchKind int

const (
	WatchRegister WatchKind = iota
	WatchMemory
	WatchExpression
)

// WatchEvent reports a value change observed across one step.
type WatchEvent struct {
	Kind       WatchKind
	Identifier string
	Old, New   uint32
}

// ReadFn evaluates one watch target's current value. For WatchExpression
// it runs the compiled AST against the provided symbol/register/memory
// readers.
type ReadFn func() (uint32, error)

type watchEntry struct {
	kind       WatchKind
	identifier string
	read       ReadFn
	last       uint32
	haveLast   bool
}

// WatchEngine snapshots every registered target before a step and diffs
// against the post-step value, the way the teacher's console polls device
// sense bytes between commands but generalized to arbitrary read functions.
type WatchEngine struct {
	entries []*watchEntry
}

// NewWatchEngine returns an empty WatchEngine.
func NewWatchEngine() *WatchEngine {
	return &WatchEngine{}
}

// Add registers a watch target identified by name (a register name, a
// memory expression, or an arbitrary expression string) backed by read.
func (w *WatchEngine) Add(kind WatchKind, identifier string, read ReadFn) {
	w.entries = append(w.entries, &watchEntry{kind: kind, identifier: identifier, read: read})
}

// Remove deregisters every watch matching identifier.
func (w *WatchEngine) Remove(identifier string) {
	kept := w.entries[:0]
	for _, e := range w.entries {
		if e.identifier != identifier {
			kept = append(kept, e)
		}
	}
	w.entries = kept
}

// Snapshot records each target's current value, to be compared against in
// the matching Diff call after the step completes.
func (w *WatchEngine) Snapshot() error {
	for _, e := range w.entries {
		v, err := e.read()
		if err != nil {
			return fmt.Errorf("watch %q: %w", e.identifier, err)
		}
		e.last = v
		e.haveLast = true
	}
	return nil
}

// Diff re-reads every target and returns a WatchEvent for each whose value
// differs from the last Snapshot.
func (w *WatchEngine) Diff() ([]WatchEvent, error) {
	var events []WatchEvent
	for _, e := range w.entries {
		v, err := e.read()
		if err != nil {
			return events, fmt.Errorf("watch %q: %w", e.identifier, err)
		}
		if e.haveLast && v != e.last {
			events = append(events, WatchEvent{Kind: e.kind, Identifier: e.identifier, Old: e.last, New: v})
		}
		e.last = v
		e.haveLast = true
	}
	return events, nil
}

// Values returns every target's last-read value, for get_state-style
// inspection outside of Diff.
func (w *WatchEngine) Values() map[string]uint32 {
	out := make(map[string]uint32, len(w.entries))
	for _, e := range w.entries {
		out[e.identifier] = e.last
	}
	return out
}
