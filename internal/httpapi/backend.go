package httpapi

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"

	"adminpanel.org/internal/model"
	"adminpanel.org/internal/stream"
)

// collection is an in-memory table that keeps insertion order.
type collection[T any] struct {
	mu    sync.RWMutex
	order []string
	items map[string]T
}

func newCollection[T any]() *collection[T] {
	return &collection[T]{items: make(map[string]T)}
}

func (c *collection[T]) get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	return v, ok
}

// put inserts or replaces the record stored under id.
func (c *collection[T]) put(id string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		c.order = append(c.order, id)
	}
	c.items[id] = v
}

func (c *collection[T]) delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return false
	}
	delete(c.items, id)
	for i, v := range c.order {
		if v == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

// list returns the records accepted by keep, in insertion order.
func (c *collection[T]) list(keep func(T) bool) []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, 0, len(c.order))
	for _, id := range c.order {
		v := c.items[id]
		if keep == nil || keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func (c *collection[T]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// page slices items into pages of limit and returns the requested one along
// with the page count, which is at least 1.
func page[T any](items []T, pageNo, limit int) ([]T, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	total := (len(items) + limit - 1) / limit
	if total < 1 {
		total = 1
	}
	if pageNo < 1 || pageNo > total {
		return []T{}, total
	}
	start := (pageNo - 1) * limit
	end := min(start+limit, len(items))
	return items[start:end], total
}

// matches reports whether the JSON form of a record satisfies every filter.
// String fields match by case-insensitive substring, arrays by membership.
// "search" matches any top-level string field. Empty values match everything.
func matches(record any, filters map[string]string) bool {
	if len(filters) == 0 {
		return true
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return false
	}
	for key, want := range filters {
		want = strings.ToLower(strings.TrimSpace(want))
		if want == "" {
			continue
		}
		if key == "search" {
			if !anyField(raw, want) {
				return false
			}
			continue
		}
		field := gjson.GetBytes(raw, key)
		if !field.Exists() || !fieldMatches(field, want) {
			return false
		}
	}
	return true
}

func fieldMatches(field gjson.Result, want string) bool {
	if field.IsArray() {
		for _, v := range field.Array() {
			if strings.EqualFold(v.String(), want) {
				return true
			}
		}
		return false
	}
	return strings.Contains(strings.ToLower(field.String()), want)
}

func anyField(raw []byte, want string) bool {
	found := false
	gjson.ParseBytes(raw).ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String && strings.Contains(strings.ToLower(v.Str), want) {
			found = true
			return false
		}
		return true
	})
	return found
}

const maxActivity = 10

// activityLog keeps the most recent mutations for the dashboard feed and
// publishes each one to live subscribers.
type activityLog struct {
	mu      sync.Mutex
	entries []model.Activity
	now     func() time.Time
	events  *stream.Broker[model.Activity]
}

func newActivityLog(now func() time.Time) *activityLog {
	return &activityLog{now: now, events: stream.New[model.Activity](0)}
}

func (l *activityLog) add(msg string) {
	evt := model.Activity{Message: msg, At: l.now().UnixMilli()}
	l.mu.Lock()
	l.entries = append([]model.Activity{evt}, l.entries...)
	if len(l.entries) > maxActivity {
		l.entries = l.entries[:maxActivity]
	}
	l.mu.Unlock()
	l.events.Publish(evt)
}

func (l *activityLog) recent() []model.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Activity, len(l.entries))
	copy(out, l.entries)
	return out
}
