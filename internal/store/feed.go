package store

import "sync"

// Op is the kind of write that produced a Change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes a committed write. It is the local stand-in for a
// realtime push from a hosted backend.
type Change struct {
	Table  string
	Op     Op
	ID     string
	UserID string
}

// changeFeed fans committed writes out to subscribers. Handlers run
// synchronously on the writing goroutine and must not block.
type changeFeed struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Change)
}

func newChangeFeed() *changeFeed {
	return &changeFeed{subs: make(map[int]func(Change))}
}

func (f *changeFeed) subscribe(fn func(Change)) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *changeFeed) publish(c Change) {
	f.mu.Lock()
	handlers := make([]func(Change), 0, len(f.subs))
	for _, fn := range f.subs {
		handlers = append(handlers, fn)
	}
	f.mu.Unlock()

	for _, fn := range handlers {
		fn(c)
	}
}

// Subscribe registers fn for every committed write made through any store
// sharing this database handle. The returned function unsubscribes.
func (s *SQLiteStore) Subscribe(fn func(Change)) func() {
	return s.feed.subscribe(fn)
}

func (s *SQLiteStore) notify(table string, op Op, id string) {
	s.feed.publish(Change{Table: table, Op: op, ID: id, UserID: s.userID})
}
