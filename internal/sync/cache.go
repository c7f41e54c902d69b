package sync

import (
	"context"
	gosync "sync"
	"time"

	"github.com/nhle/studytrack/internal/model"
)

// Snapshot is an immutable view of one cache generation.
type Snapshot struct {
	Generation uint64
	Tasks      []model.Task
	LoadedAt   time.Time
}

// Loader produces a fresh aggregated task list.
type Loader interface {
	Load(ctx context.Context) ([]model.Task, error)
}

// Cache holds the current aggregated task list plus a generation counter.
// Every commit, patch, rollback or removal produces a new generation, and
// readers always get copies.
//
// Loads are fenced: Begin issues a token and Commit only accepts the most
// recently issued one, so a slow response can never overwrite a newer one.
// Local writes also invalidate in-flight loads, because those loads may
// have read the gateway before the write landed.
type Cache struct {
	mu       gosync.RWMutex
	gen      uint64
	issued   uint64
	tasks    []model.Task
	loadedAt time.Time
}

// NewCache returns an empty cache at generation 0.
func NewCache() *Cache {
	return &Cache{tasks: []model.Task{}}
}

// Begin issues a new request token.
func (c *Cache) Begin() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued++
	return c.issued
}

// Commit replaces the task list if token is still the latest issued one.
// It reports whether the result was kept.
func (c *Cache) Commit(token uint64, tasks []model.Task) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if token != c.issued {
		return false
	}
	c.tasks = cloneAll(tasks)
	c.loadedAt = time.Now()
	c.gen++
	return true
}

// Load runs loader under a fresh token and commits the result. A result
// superseded by a newer request is dropped without error.
func (c *Cache) Load(ctx context.Context, loader Loader) (bool, error) {
	token := c.Begin()
	tasks, err := loader.Load(ctx)
	if err != nil {
		return false, err
	}
	return c.Commit(token, tasks), nil
}

// Snapshot returns a deep copy of the current generation.
func (c *Cache) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Snapshot{
		Generation: c.gen,
		Tasks:      cloneAll(c.tasks),
		LoadedAt:   c.loadedAt,
	}
}

// Generation returns the current generation number.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Get returns a copy of the cached task with the given id.
func (c *Cache) Get(id string) (model.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.tasks[i].Clone(), true
	}
	return model.Task{}, false
}

// Put inserts or replaces a task and returns what it replaced, so the
// caller can Restore it if the gateway write fails. New tasks go first,
// matching the newest-first order of a full load.
func (c *Cache) Put(task model.Task) (prev model.Task, existed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.issued++
	if i := c.index(task.ID); i >= 0 {
		prev = c.tasks[i]
		c.tasks[i] = task.Clone()
		c.gen++
		return prev, true
	}
	c.tasks = append([]model.Task{task.Clone()}, c.tasks...)
	c.gen++
	return model.Task{}, false
}

// Restore undoes a Put: the previous task is put back if one existed,
// otherwise the inserted task is removed.
func (c *Cache) Restore(id string, prev model.Task, existed bool) {
	if existed {
		c.Put(prev)
		return
	}
	c.Remove(id)
}

// Remove drops a task from the cache and returns it.
func (c *Cache) Remove(id string) (model.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.issued++
	i := c.index(id)
	if i < 0 {
		return model.Task{}, false
	}
	removed := c.tasks[i]
	c.tasks = append(c.tasks[:i:i], c.tasks[i+1:]...)
	c.gen++
	return removed, true
}

func (c *Cache) index(id string) int {
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(tasks []model.Task) []model.Task {
	out := make([]model.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}
