package query

import (
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"docmap/src/schema"
)

// Direction orders a sort key.
type Direction int

const (
	Ascending  Direction = 1
	Descending Direction = -1
)

// Comparison operators accepted by Where. They compile to the store's
// operator documents.
const (
	OpEqual          = "="
	OpNotEqual       = "!="
	OpGreaterThan    = ">"
	OpGreaterOrEqual = ">="
	OpLessThan       = "<"
	OpLessOrEqual    = "<="
	OpIn             = "in"
	OpExists         = "exists"
)

var operatorNames = map[string]string{
	OpNotEqual:       "$ne",
	OpGreaterThan:    "$gt",
	OpGreaterOrEqual: "$gte",
	OpLessThan:       "$lt",
	OpLessOrEqual:    "$lte",
	OpIn:             "$in",
	OpExists:         "$exists",
}

// Condition is one filter clause: field, operator, value.
type Condition struct {
	Field    string
	Operator string
	Value    interface{}
}

// SortKey is one ordering clause.
type SortKey struct {
	Field     string
	Direction Direction
}

// Query is an immutable specification of a filtered, sorted, bounded fetch
// scoped to one document type. Every chaining method returns a fresh value;
// nothing executes until a Manager runs the spec. Field names are checked
// against the schema when the chain is built, never at execution time.
type Query struct {
	schema  *schema.Schema
	filters []Condition
	sorts   []SortKey
	limit   *int64
	skip    *int64
}

// New builds an empty specification bound to the given document type.
func New(s *schema.Schema) Query {
	return Query{schema: s}
}

// Schema returns the document type the spec is bound to.
func (q Query) Schema() *schema.Schema {
	return q.schema
}

func (q Query) clone() Query {
	out := Query{schema: q.schema}
	out.filters = append([]Condition(nil), q.filters...)
	out.sorts = append([]SortKey(nil), q.sorts...)
	if q.limit != nil {
		n := *q.limit
		out.limit = &n
	}
	if q.skip != nil {
		n := *q.skip
		out.skip = &n
	}
	return out
}

// Filter adds equality conditions. Every key must be a declared field of the
// bound type; the check runs now, so a bad field name never reaches the
// store.
func (q Query) Filter(conditions map[string]interface{}) (Query, error) {
	keys := make([]string, 0, len(conditions))
	for k := range conditions {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := q.clone()
	for _, k := range keys {
		if !q.schema.Allows(k) {
			return Query{}, fmt.Errorf("%w: field %q is not declared on document type %s",
				schema.ErrUnknownField, k, q.schema.Name)
		}
		out.filters = append(out.filters, Condition{Field: k, Operator: OpEqual, Value: conditions[k]})
	}
	return out, nil
}

// Where adds one condition with an explicit comparison operator.
func (q Query) Where(field, operator string, value interface{}) (Query, error) {
	if !q.schema.Allows(field) {
		return Query{}, fmt.Errorf("%w: field %q is not declared on document type %s",
			schema.ErrUnknownField, field, q.schema.Name)
	}
	if operator != OpEqual {
		if _, ok := operatorNames[operator]; !ok {
			return Query{}, fmt.Errorf("unknown filter operator %q on field %q", operator, field)
		}
	}
	out := q.clone()
	out.filters = append(out.filters, Condition{Field: field, Operator: operator, Value: value})
	return out, nil
}

// OrderBy adds a sort key. The field must be declared on the bound type.
func (q Query) OrderBy(field string, direction Direction) (Query, error) {
	if !q.schema.Allows(field) {
		return Query{}, fmt.Errorf("%w: field %q is not declared on document type %s",
			schema.ErrUnknownField, field, q.schema.Name)
	}
	out := q.clone()
	out.sorts = append(out.sorts, SortKey{Field: field, Direction: direction})
	return out, nil
}

// Limit bounds the number of returned documents.
func (q Query) Limit(n int64) Query {
	out := q.clone()
	out.limit = &n
	return out
}

// Skip drops the first n matching documents.
func (q Query) Skip(n int64) Query {
	out := q.clone()
	out.skip = &n
	return out
}

// Conditions returns the filter clauses in the order they were added.
func (q Query) Conditions() []Condition {
	return append([]Condition(nil), q.filters...)
}

// ToFilter compiles the filter clauses into a store-level filter document,
// mapping semantic field names to storage names.
func (q Query) ToFilter() (bson.D, error) {
	filter := bson.D{}
	for _, c := range q.filters {
		storageName, err := q.schema.StorageName(c.Field)
		if err != nil {
			return nil, err
		}
		if c.Operator == OpEqual {
			filter = append(filter, bson.E{Key: storageName, Value: c.Value})
			continue
		}
		op, ok := operatorNames[c.Operator]
		if !ok {
			return nil, fmt.Errorf("unknown filter operator %q on field %q", c.Operator, c.Field)
		}
		filter = append(filter, bson.E{Key: storageName, Value: bson.D{{Key: op, Value: c.Value}}})
	}
	return filter, nil
}

// FindOptions compiles sort, limit and skip into driver find options. Limit
// and skip are deliberately left out of count execution; the Manager counts
// with the filter alone.
func (q Query) FindOptions() (*options.FindOptions, error) {
	opts := options.Find()
	if len(q.sorts) > 0 {
		sortDoc := bson.D{}
		for _, s := range q.sorts {
			storageName, err := q.schema.StorageName(s.Field)
			if err != nil {
				return nil, err
			}
			sortDoc = append(sortDoc, bson.E{Key: storageName, Value: int(s.Direction)})
		}
		opts.SetSort(sortDoc)
	}
	if q.limit != nil {
		opts.SetLimit(*q.limit)
	}
	if q.skip != nil {
		opts.SetSkip(*q.skip)
	}
	return opts, nil
}
