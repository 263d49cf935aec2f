package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeRow_KeepsColumnOrder(t *testing.T) {
	b, err := EncodeRow([]string{"z", "a", "m"}, []string{"1", `say "hi"`})
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"say \"hi\"","m":""}`, string(b))

	keys, values, err := DecodeRow(b)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a", "m"}, keys)
	assert.Equal(t, []string{"1", `say "hi"`, ""}, values)
}

func TestDecodeRow_Scalars(t *testing.T) {
	keys, values, err := DecodeRow([]byte(`{"order_id":"o1","review_score":4,"value":12.50,"ok":true,"comment":null}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"order_id", "review_score", "value", "ok", "comment"}, keys)
	assert.Equal(t, []string{"o1", "4", "12.50", "true", ""}, values)
}

func TestDecodeRow_Rejects(t *testing.T) {
	for _, in := range []string{
		`[1,2]`,
		`{"a":{"b":1}}`,
		`{"a":[1]}`,
		`{"a":1} {"b":2}`,
		`{"a":`,
		``,
	} {
		_, _, err := DecodeRow([]byte(in))
		assert.Error(t, err, in)
	}
}

func TestTableBuilder_UnionOfColumns(t *testing.T) {
	tb := newTableBuilder("orders")
	tb.add([]string{"a", "b"}, []string{"1", "2"})
	tb.add([]string{"c", "a"}, []string{"3", "4"})
	tb.add(nil, nil)

	assert.Equal(t, []string{"a", "b", "c"}, tb.columns)
	assert.Equal(t, [][]string{{"1", "2"}, {"4", "", "3"}, {"", "", ""}}, tb.rows)
}
