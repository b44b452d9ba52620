package engine

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// fakeStore is an in-memory DocumentStore used by the engine tests. It
// understands the filter shapes the mapper emits: plain equality and $in.
type fakeStore struct {
	mu          sync.Mutex
	collections map[string][]bson.M

	inserts   int
	replaces  int
	deletes   int
	findCalls map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		collections: make(map[string][]bson.M),
		findCalls:   make(map[string]int),
	}
}

func (s *fakeStore) InsertOne(_ context.Context, collection string, doc bson.M) (primitive.ObjectID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := primitive.NewObjectID()
	stored := bson.M{"_id": id}
	for k, v := range doc {
		stored[k] = v
	}
	s.collections[collection] = append(s.collections[collection], stored)
	s.inserts++
	return id, nil
}

func (s *fakeStore) ReplaceOne(_ context.Context, collection string, id primitive.ObjectID, doc bson.M) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, stored := range s.collections[collection] {
		if stored["_id"] == id {
			replacement := bson.M{"_id": id}
			for k, v := range doc {
				replacement[k] = v
			}
			s.collections[collection][i] = replacement
			s.replaces++
			return nil
		}
	}
	return fmt.Errorf("no document with id %s in %s", id.Hex(), collection)
}

func (s *fakeStore) DeleteOne(_ context.Context, collection string, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collections[collection]
	for i, stored := range docs {
		if stored["_id"] == id {
			s.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			s.deletes++
			return nil
		}
	}
	return fmt.Errorf("no document with id %s in %s", id.Hex(), collection)
}

func (s *fakeStore) FindOne(_ context.Context, collection string, filter bson.D) (bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, stored := range s.collections[collection] {
		ok, err := matches(stored, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return stored, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) Find(_ context.Context, collection string, filter bson.D, opts *options.FindOptions) ([]bson.M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findCalls[collection]++

	var rows []bson.M
	for _, stored := range s.collections[collection] {
		ok, err := matches(stored, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, stored)
		}
	}

	if opts != nil && opts.Sort != nil {
		sortDoc, ok := opts.Sort.(bson.D)
		if !ok {
			return nil, fmt.Errorf("unsupported sort document %T", opts.Sort)
		}
		sort.SliceStable(rows, func(i, j int) bool {
			for _, key := range sortDoc {
				cmp := compareValues(rows[i][key.Key], rows[j][key.Key])
				if cmp == 0 {
					continue
				}
				if key.Value.(int) < 0 {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}

	if opts != nil && opts.Skip != nil {
		skip := int(*opts.Skip)
		if skip > len(rows) {
			skip = len(rows)
		}
		rows = rows[skip:]
	}
	if opts != nil && opts.Limit != nil && int(*opts.Limit) < len(rows) {
		rows = rows[:int(*opts.Limit)]
	}

	return rows, nil
}

func (s *fakeStore) Count(_ context.Context, collection string, filter bson.D) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, stored := range s.collections[collection] {
		ok, err := matches(stored, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func matches(doc bson.M, filter bson.D) (bool, error) {
	for _, cond := range filter {
		value, ok := doc[cond.Key]
		if !ok {
			return false, nil
		}

		if opDoc, isOp := cond.Value.(bson.D); isOp {
			for _, op := range opDoc {
				switch op.Key {
				case "$in":
					if !containsValue(op.Value, value) {
						return false, nil
					}
				default:
					return false, fmt.Errorf("fake store does not support operator %s", op.Key)
				}
			}
			continue
		}

		if !reflect.DeepEqual(value, cond.Value) {
			return false, nil
		}
	}
	return true, nil
}

func containsValue(set interface{}, value interface{}) bool {
	s := reflect.ValueOf(set)
	if s.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < s.Len(); i++ {
		if reflect.DeepEqual(s.Index(i).Interface(), value) {
			return true
		}
	}
	return false
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		bv, _ := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case int64:
		bv, _ := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case float64:
		bv, _ := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	}
	return 0
}
