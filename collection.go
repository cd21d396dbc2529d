package storekit

import (
	"bytes"
	"context"
	"encoding/json"
	"reflect"

	"github.com/gozephyr/storekit/backend"
	"github.com/gozephyr/storekit/errors"
)

// Collection operations reinterpret an entry's value as an ordered sequence.
// Mutations are read-modify-write cycles serialized by the per-key lock and
// written back with the entry's remaining TTL intact. An operation on a key
// holding a non-sequence value fails with ErrTypeMismatch and leaves the
// entry untouched; read operations on an absent key report a miss, matching
// scalar Get.

// toList reinterprets a stored value as a sequence. Strings and byte slices
// are scalars here, not sequences. Typed slices are widened to []any so that
// values stored in-memory and values round-tripped through a serializing
// backend behave the same.
func toList(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []byte, string, nil:
		return nil, false
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	list := make([]any, rv.Len())
	for i := range list {
		list[i] = rv.Index(i).Interface()
	}
	return list, true
}

// jsonEqual compares two values by their canonical JSON encoding, so an int
// written in-process matches the json.Number it becomes after a round trip
// through a serializing backend.
func jsonEqual(a, b any) bool {
	ja, err := json.Marshal(a)
	if err != nil {
		return false
	}
	jb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// loadList fetches key and reinterprets it as a sequence. A missing key is
// (nil, false, nil); a non-sequence value is an ErrTypeMismatch.
func (s *Store) loadList(ctx context.Context, op, key string) ([]any, bool, error) {
	value, found, err := s.backend.Get(ctx, key)
	if err != nil {
		return nil, false, errors.WrapError(op, key, err)
	}
	if !found {
		return nil, false, nil
	}
	list, ok := toList(value)
	if !ok {
		return nil, false, errors.WrapError(op, key, errors.ErrTypeMismatch)
	}
	return list, true, nil
}

// mutateList runs fn over the sequence at key under the per-key lock and
// writes the result back without touching the entry's expiry. fn receives
// nil for an absent key. fn operates on a copy: the memory backend holds the
// stored slice by reference, so the entry must stay untouched until the
// write-back succeeds.
func (s *Store) mutateList(ctx context.Context, op, key string, fn func(list []any) ([]any, error)) error {
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	list, found, err := s.loadList(ctx, op, key)
	if err != nil {
		return err
	}
	updated, err := fn(append([]any(nil), list...))
	if err != nil {
		return errors.WrapError(op, key, err)
	}
	if !found && len(updated) == 0 {
		// Removing from an absent key must not materialize an entry.
		return nil
	}
	if err := s.backend.Set(ctx, key, updated, backend.KeepTTL); err != nil {
		return errors.WrapError(op, key, err)
	}
	return nil
}

// Push appends values to the end of the sequence at key, creating an empty
// sequence first when the key is absent.
func (s *Store) Push(ctx context.Context, key string, values ...any) error {
	if err := s.checkOp(ctx, "Push", key); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return s.mutateList(ctx, "Push", key, func(list []any) ([]any, error) {
		return append(list, values...), nil
	})
}

// Pop removes and returns one element from an end of the sequence. A
// position >= 0 pops from the front, a negative position pops from the back,
// matching ArrayGet's negative-index convention. Popping an absent or empty
// sequence reports a miss.
func (s *Store) Pop(ctx context.Context, key string, position int) (any, bool, error) {
	if err := s.checkOp(ctx, "Pop", key); err != nil {
		return nil, false, err
	}

	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	list, found, err := s.loadList(ctx, "Pop", key)
	if err != nil {
		return nil, false, err
	}
	if !found || len(list) == 0 {
		return nil, false, nil
	}

	var popped any
	if position >= 0 {
		popped = list[0]
		list = list[1:]
	} else {
		popped = list[len(list)-1]
		list = list[:len(list)-1]
	}

	if err := s.backend.Set(ctx, key, list, backend.KeepTTL); err != nil {
		return nil, false, errors.WrapError("Pop", key, err)
	}
	return popped, true, nil
}

// Pull removes all occurrences structurally equal to value from the sequence
func (s *Store) Pull(ctx context.Context, key string, value any) error {
	if err := s.checkOp(ctx, "Pull", key); err != nil {
		return err
	}
	return s.PullAll(ctx, key, value)
}

// PullAll removes all occurrences of any of the given values
func (s *Store) PullAll(ctx context.Context, key string, values ...any) error {
	if err := s.checkOp(ctx, "PullAll", key); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return s.mutateList(ctx, "PullAll", key, func(list []any) ([]any, error) {
		kept := list[:0:0]
		for _, element := range list {
			remove := false
			for _, value := range values {
				if jsonEqual(element, value) {
					remove = true
					break
				}
			}
			if !remove {
				kept = append(kept, element)
			}
		}
		return kept, nil
	})
}

// AddToSet appends only values not already present in the sequence,
// preserving existing order. Duplicates among the given values are ignored
// as well. Equality is structural.
func (s *Store) AddToSet(ctx context.Context, key string, values ...any) error {
	if err := s.checkOp(ctx, "AddToSet", key); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	return s.mutateList(ctx, "AddToSet", key, func(list []any) ([]any, error) {
		for _, value := range values {
			present := false
			for _, element := range list {
				if jsonEqual(element, value) {
					present = true
					break
				}
			}
			if !present {
				list = append(list, value)
			}
		}
		return list, nil
	})
}

// ArrayLen returns the length of the sequence at key; 0 when absent
func (s *Store) ArrayLen(ctx context.Context, key string) (int, error) {
	if err := s.checkOp(ctx, "ArrayLen", key); err != nil {
		return 0, err
	}
	list, _, err := s.loadList(ctx, "ArrayLen", key)
	if err != nil {
		return 0, err
	}
	return len(list), nil
}

// ArrayGet returns the element at index; negative indices count from the
// end. An absent key or out-of-range index reports a miss.
func (s *Store) ArrayGet(ctx context.Context, key string, index int) (any, bool, error) {
	if err := s.checkOp(ctx, "ArrayGet", key); err != nil {
		return nil, false, err
	}
	list, found, err := s.loadList(ctx, "ArrayGet", key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}

	if index < 0 {
		index += len(list)
	}
	if index < 0 || index >= len(list) {
		return nil, false, nil
	}
	return list[index], true, nil
}

// ArraySet replaces the element at index; negative indices count from the
// end. An index outside the current sequence is an ErrInvalidIndex; the
// entry is left untouched.
func (s *Store) ArraySet(ctx context.Context, key string, index int, value any) error {
	if err := s.checkOp(ctx, "ArraySet", key); err != nil {
		return err
	}
	return s.mutateList(ctx, "ArraySet", key, func(list []any) ([]any, error) {
		if index < 0 {
			index += len(list)
		}
		if index < 0 || index >= len(list) {
			return nil, errors.ErrInvalidIndex
		}
		list[index] = value
		return list, nil
	})
}

// ArraySlice returns up to count elements starting at start. The range is
// clamped to the sequence bounds; an absent key yields an empty slice. A
// negative start or count is an ErrInvalidIndex.
func (s *Store) ArraySlice(ctx context.Context, key string, start, count int) ([]any, error) {
	if err := s.checkOp(ctx, "ArraySlice", key); err != nil {
		return nil, err
	}
	if start < 0 || count < 0 {
		return nil, errors.WrapError("ArraySlice", key, errors.ErrInvalidIndex)
	}

	list, _, err := s.loadList(ctx, "ArraySlice", key)
	if err != nil {
		return nil, err
	}
	if start >= len(list) {
		return []any{}, nil
	}
	end := start + count
	if end > len(list) {
		end = len(list)
	}
	result := make([]any, end-start)
	copy(result, list[start:end])
	return result, nil
}

// ArrayPage returns one page of the sequence; pages are 1-indexed. A page or
// pageSize below 1 is an ErrInvalidIndex.
func (s *Store) ArrayPage(ctx context.Context, key string, page, pageSize int) ([]any, error) {
	if err := s.checkOp(ctx, "ArrayPage", key); err != nil {
		return nil, err
	}
	if page < 1 || pageSize < 1 {
		return nil, errors.WrapError("ArrayPage", key, errors.ErrInvalidIndex)
	}
	return s.ArraySlice(ctx, key, (page-1)*pageSize, pageSize)
}

// ArrayAll returns the full sequence at key; empty when absent. The result
// is a copy; mutating it does not affect the stored entry.
func (s *Store) ArrayAll(ctx context.Context, key string) ([]any, error) {
	if err := s.checkOp(ctx, "ArrayAll", key); err != nil {
		return nil, err
	}
	list, _, err := s.loadList(ctx, "ArrayAll", key)
	if err != nil {
		return nil, err
	}
	result := make([]any, len(list))
	copy(result, list)
	return result, nil
}
