// Package collection holds the copy-on-write transforms applied to cached
// record lists after the server confirms a change.
package collection

import "github.com/socialhub/client/internal/cache"

// Record is a domain record with a stable identity.
type Record interface {
	RecordKey() int64
}

// Update returns a copy of items with fn applied to every record whose key
// matches. The input slice is never modified.
func Update[T Record](items []T, key int64, fn func(T) T) []T {
	idx := indexOf(items, key)
	if idx < 0 {
		return items
	}
	out := make([]T, len(items))
	copy(out, items)
	for i := idx; i < len(out); i++ {
		if out[i].RecordKey() == key {
			out[i] = fn(out[i])
		}
	}
	return out
}

// UpdateAll returns a copy of items with fn applied to every record.
func UpdateAll[T any](items []T, fn func(T) T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = fn(item)
	}
	return out
}

// Remove returns a copy of items without the record matching key.
func Remove[T Record](items []T, key int64) []T {
	if indexOf(items, key) < 0 {
		return items
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.RecordKey() != key {
			out = append(out, item)
		}
	}
	return out
}

// Prepend returns a copy of items with record at the front. An existing record
// with the same key is dropped.
func Prepend[T Record](items []T, record T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, record)
	for _, item := range items {
		if item.RecordKey() != record.RecordKey() {
			out = append(out, item)
		}
	}
	return out
}

// Find returns the first record satisfying match.
func Find[T any](items []T, match func(T) bool) (T, bool) {
	for _, item := range items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns the records satisfying keep.
func Filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

func indexOf[T Record](items []T, key int64) int {
	for i, item := range items {
		if item.RecordKey() == key {
			return i
		}
	}
	return -1
}

// ApplyAll applies fn to the record identified by key in every held entry of
// every cache. Entries that do not contain the record are left untouched.
func ApplyAll[T Record](key int64, fn func(T) T, caches ...*cache.Cache[[]T]) {
	for _, c := range caches {
		if c == nil {
			continue
		}
		c.MutateAll(func(_ string, items []T) []T {
			return Update(items, key, fn)
		})
	}
}

// RemoveAll drops the record identified by key from every held entry of every
// cache.
func RemoveAll[T Record](key int64, caches ...*cache.Cache[[]T]) {
	for _, c := range caches {
		if c == nil {
			continue
		}
		c.MutateAll(func(_ string, items []T) []T {
			return Remove(items, key)
		})
	}
}

// Decrement lowers n by one without going below zero.
func Decrement(n int) int {
	if n <= 0 {
		return 0
	}
	return n - 1
}
