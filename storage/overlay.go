package storage

import "sync"

// Overlay buffers writes on top of a base database. Reads see buffered
// writes first, then fall through to the base. Nothing reaches the base
// until Flush; Discard drops the buffer. One overlay per call gives the
// all-or-nothing commit the execution model requires.
type Overlay struct {
	mu     sync.Mutex
	base   Database
	writes map[string][]byte
}

// NewOverlay wraps base with an empty write buffer.
func NewOverlay(base Database) *Overlay {
	return &Overlay{base: base, writes: make(map[string][]byte)}
}

// Put records the write in the buffer only.
func (o *Overlay) Put(key []byte, value []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes[string(key)] = value
	return nil
}

// Get returns the buffered value when present, otherwise reads the base.
func (o *Overlay) Get(key []byte) ([]byte, error) {
	o.mu.Lock()
	value, ok := o.writes[string(key)]
	o.mu.Unlock()
	if ok {
		return value, nil
	}
	return o.base.Get(key)
}

// Flush applies every buffered write to the base and empties the buffer.
// A write failure leaves the remaining buffer intact and is returned.
func (o *Overlay) Flush() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for key, value := range o.writes {
		if err := o.base.Put([]byte(key), value); err != nil {
			return err
		}
		delete(o.writes, key)
	}
	return nil
}

// Discard drops every buffered write without touching the base.
func (o *Overlay) Discard() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.writes = make(map[string][]byte)
}

// Pending reports the number of buffered writes.
func (o *Overlay) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.writes)
}

// Close satisfies Database. The base stays open; its owner closes it.
func (o *Overlay) Close() {}
