package query

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"docmap/src/schema"
)

var userSchema = mustDeclare("User", []*schema.FieldDescriptor{
	schema.StringField("email").WithRequired(),
	schema.StringField("first_name").WithStorageName("fname"),
	schema.IntegerField("age"),
})

func mustDeclare(name string, fields []*schema.FieldDescriptor, opts ...schema.DeclareOption) *schema.Schema {
	s, err := schema.Declare(name, fields, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func TestFilterRejectsUndeclaredField(t *testing.T) {
	require := require.New(t)

	_, err := New(userSchema).Filter(map[string]interface{}{"nope": 1})
	require.ErrorIs(err, schema.ErrUnknownField)
	require.Contains(err.Error(), `field "nope" is not declared on document type User`)
}

func TestOrderByRejectsUndeclaredField(t *testing.T) {
	require := require.New(t)

	_, err := New(userSchema).OrderBy("nope", Descending)
	require.ErrorIs(err, schema.ErrUnknownField)
	require.Contains(err.Error(), `field "nope"`)
}

func TestWhereRejectsUnknownOperator(t *testing.T) {
	require := require.New(t)

	_, err := New(userSchema).Where("age", "~", 30)
	require.Error(err)
	require.Contains(err.Error(), `unknown filter operator "~"`)
}

func TestChainingDoesNotMutateReceiver(t *testing.T) {
	require := require.New(t)

	base := New(userSchema)

	filtered, err := base.Filter(map[string]interface{}{"email": "someone@gmail.com"})
	require.NoError(err)

	sorted, err := base.OrderBy("email", Ascending)
	require.NoError(err)

	limited := filtered.Limit(10)

	require.Empty(base.Conditions())
	require.Len(filtered.Conditions(), 1)
	require.Len(limited.Conditions(), 1)

	baseFilter, err := base.ToFilter()
	require.NoError(err)
	require.Empty(baseFilter)

	sortedOpts, err := sorted.FindOptions()
	require.NoError(err)
	require.NotNil(sortedOpts.Sort)

	baseOpts, err := base.FindOptions()
	require.NoError(err)
	require.Nil(baseOpts.Sort)
	require.Nil(baseOpts.Limit)
}

func TestToFilterUsesStorageNames(t *testing.T) {
	require := require.New(t)

	q, err := New(userSchema).Filter(map[string]interface{}{"first_name": "Bernardo"})
	require.NoError(err)

	filter, err := q.ToFilter()
	require.NoError(err)
	require.Equal(bson.D{{Key: "fname", Value: "Bernardo"}}, filter)
}

func TestWhereCompilesOperators(t *testing.T) {
	require := require.New(t)

	q, err := New(userSchema).Where("age", OpGreaterOrEqual, 21)
	require.NoError(err)
	q, err = q.Where("email", OpNotEqual, "")
	require.NoError(err)

	filter, err := q.ToFilter()
	require.NoError(err)
	require.Equal(bson.D{
		{Key: "age", Value: bson.D{{Key: "$gte", Value: 21}}},
		{Key: "email", Value: bson.D{{Key: "$ne", Value: ""}}},
	}, filter)
}

func TestFindOptionsCompileSortLimitSkip(t *testing.T) {
	require := require.New(t)

	q, err := New(userSchema).OrderBy("age", Descending)
	require.NoError(err)
	q, err = q.OrderBy("first_name", Ascending)
	require.NoError(err)
	q = q.Limit(10).Skip(5)

	opts, err := q.FindOptions()
	require.NoError(err)
	require.Equal(bson.D{
		{Key: "age", Value: -1},
		{Key: "fname", Value: 1},
	}, opts.Sort)
	require.Equal(int64(10), *opts.Limit)
	require.Equal(int64(5), *opts.Skip)
}

func TestFilterKeepsConditionTriples(t *testing.T) {
	require := require.New(t)

	q, err := New(userSchema).Filter(map[string]interface{}{"email": "someone@gmail.com"})
	require.NoError(err)

	conditions := q.Conditions()
	require.Equal([]Condition{{Field: "email", Operator: OpEqual, Value: "someone@gmail.com"}}, conditions)
}
