package avro

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRecord(t *testing.T) {
	schema := MustParse(`{
		"type": "record", "name": "person",
		"fields": [
			{"name": "name", "type": "string"},
			{"name": "age", "type": "long", "default": 0}
		]
	}`)

	// Caller supplies fields out of declaration order; encode still
	// projects them into schema order (§4.8).
	rec := &RecordValue{Fields: []FieldValue{
		{Name: "age", V: LongValue(30)},
		{Name: "name", V: StringValue("ada")},
	}}

	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, rec)
	require.NoError(t, err)

	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	gotRec, err := AsRecord(got)
	require.NoError(t, err)
	nameV, _ := gotRec.Get("name")
	ageV, _ := gotRec.Get("age")
	assert.Equal(t, StringValue("ada"), nameV)
	assert.Equal(t, LongValue(30), ageV)
}

func TestEncodeRecordFillsDefault(t *testing.T) {
	schema := MustParse(`{
		"type": "record", "name": "person",
		"fields": [{"name": "age", "type": "long", "default": 21}]
	}`)
	rec := &RecordValue{Fields: nil}

	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, rec)
	require.NoError(t, err)

	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	gotRec, _ := AsRecord(got)
	v, _ := gotRec.Get("age")
	assert.Equal(t, LongValue(21), v)
}

func TestEncodeRecordRejectsMissingWithoutDefault(t *testing.T) {
	schema := MustParse(`{
		"type": "record", "name": "person",
		"fields": [{"name": "name", "type": "string"}]
	}`)
	rec := &RecordValue{}
	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
}

func TestEncodeRecordRejectsExtraField(t *testing.T) {
	schema := MustParse(`{
		"type": "record", "name": "person",
		"fields": [{"name": "name", "type": "string"}]
	}`)
	rec := &RecordValue{Fields: []FieldValue{
		{Name: "name", V: StringValue("ada")},
		{Name: "extra", V: IntValue(1)},
	}}
	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
}

// TestScenarioS6NestedRecord implements spec scenario S6.
func TestScenarioS6NestedRecord(t *testing.T) {
	schema := MustParse(`{
		"type": "record", "name": "dashboard_stats",
		"fields": [
			{"name": "name", "type": "string"},
			{"name": "foo", "type": {
				"type": "record", "name": "foo_rec",
				"fields": [{"name": "SomeData", "type": "float"}]
			}},
			{"name": "inner_rec", "type": {
				"type": "record", "name": "inner",
				"fields": [{"name": "id", "type": "long"}]
			}}
		]
	}`)

	value := &RecordValue{Fields: []FieldValue{
		{Name: "name", V: StringValue("nested_record_example")},
		{Name: "foo", V: &RecordValue{Fields: []FieldValue{
			{Name: "SomeData", V: FloatValue(234.455)},
		}}},
		{Name: "inner_rec", V: &RecordValue{Fields: []FieldValue{
			{Name: "id", V: LongValue(3)},
		}}},
	}}

	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, value)
	require.NoError(t, err)

	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	rec, err := AsRecord(got)
	require.NoError(t, err)

	fooV, _ := rec.Get("foo")
	fooRec, _ := AsRecord(fooV)
	someData, _ := fooRec.Get("SomeData")
	assert.Equal(t, FloatValue(234.455), someData)

	innerV, _ := rec.Get("inner_rec")
	innerRec, _ := AsRecord(innerV)
	idV, _ := innerRec.Get("id")
	assert.Equal(t, LongValue(3), idV)
}

func TestEncodeDecodeEnum(t *testing.T) {
	schema := MustParse(`{"type":"enum","name":"Suit","symbols":["CLUBS","SPADE","DIAMOND"]}`)
	v := EnumValue{Schema: schema, Symbol: "DIAMOND"}

	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, v)
	require.NoError(t, err)
	// S8: zig-zag of index 2 is a single byte 0x04.
	assert.Equal(t, []byte{0x04}, buf.Bytes())

	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	ev, ok := got.(EnumValue)
	require.True(t, ok)
	assert.Equal(t, "DIAMOND", ev.Symbol)
}

func TestEncodeEnumWithoutSymbolFails(t *testing.T) {
	schema := MustParse(`{"type":"enum","name":"Suit","symbols":["CLUBS"]}`)
	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, EnumValue{Schema: schema})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
}

func TestEncodeEnumUnknownSymbolFails(t *testing.T) {
	schema := MustParse(`{"type":"enum","name":"Suit","symbols":["CLUBS"]}`)
	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, EnumValue{Schema: schema, Symbol: "HEARTS"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
}

// TestScenarioS7ArrayOfString implements spec scenario S7, checking the
// exact byte layout: zig-zag long 4 (0x08), four length-prefixed strings,
// terminator 0x00.
func TestScenarioS7ArrayOfString(t *testing.T) {
	schema := MustParse(`{"type":"array","items":"string"}`)
	value := ArrayValue{StringValue("a"), StringValue("b"), StringValue("c"), StringValue("d")}

	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, value)
	require.NoError(t, err)

	want := []byte{0x08, 0x02, 'a', 0x02, 'b', 0x02, 'c', 0x02, 'd', 0x00}
	assert.Equal(t, want, buf.Bytes())

	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	arr, err := AsArray(got)
	require.NoError(t, err)
	require.Len(t, arr, 4)
	assert.Equal(t, StringValue("c"), arr[2])
}

func TestArrayDecoderToleratesNegativeCount(t *testing.T) {
	schema := MustParse(`{"type":"array","items":"int"}`)
	var buf bytes.Buffer
	// -2 items, followed by a byte-size hint, followed by the two items,
	// followed by the terminator.
	_, err := encodeLong(&buf, -2)
	require.NoError(t, err)
	_, err = encodeLong(&buf, 99) // size hint, ignored
	require.NoError(t, err)
	_, err = encodeLong(&buf, 1)
	require.NoError(t, err)
	_, err = encodeLong(&buf, 2)
	require.NoError(t, err)
	_, err = encodeLong(&buf, 0)
	require.NoError(t, err)

	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	arr, err := AsArray(got)
	require.NoError(t, err)
	require.Len(t, arr, 2)
	assert.Equal(t, IntValue(1), arr[0])
	assert.Equal(t, IntValue(2), arr[1])
}

// TestScenarioS5MapOfDouble implements spec scenario S5.
func TestScenarioS5MapOfDouble(t *testing.T) {
	schema := MustParse(`{"type":"map","values":"double"}`)
	value := MapValue{{Key: "A", V: DoubleValue(234.455)}}

	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, value)
	require.NoError(t, err)

	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	m, err := AsMap(got)
	require.NoError(t, err)
	require.Len(t, m, 1)
	assert.Equal(t, "A", m[0].Key)
	assert.Equal(t, DoubleValue(234.455), m[0].V)
}

func TestMapEncodingIsDeterministicPerRun(t *testing.T) {
	schema := MustParse(`{"type":"map","values":"int"}`)
	value := MapValue{
		{Key: "z", V: IntValue(1)},
		{Key: "a", V: IntValue(2)},
	}

	var buf1, buf2 bytes.Buffer
	_, err := EncodeValue(&buf1, schema, value)
	require.NoError(t, err)
	_, err = EncodeValue(&buf2, schema, value)
	require.NoError(t, err)
	assert.Equal(t, buf1.Bytes(), buf2.Bytes())
}

func TestEncodeDecodeFixed(t *testing.T) {
	schema := MustParse(`{"type":"fixed","name":"md5","size":4}`)
	value := FixedValue{1, 2, 3, 4}

	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, value)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf.Bytes())

	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	assert.Equal(t, value, got)
}

func TestEncodeFixedWrongLength(t *testing.T) {
	schema := MustParse(`{"type":"fixed","name":"md5","size":4}`)
	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, FixedValue{1, 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEncode)
}

func TestEncodeDecodeUnion(t *testing.T) {
	schema := MustParse(`["null","string"]`)

	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, NullValue{})
	require.NoError(t, err)
	got, err := DecodeValue(&buf, schema)
	require.NoError(t, err)
	uv, ok := got.(UnionValue)
	require.True(t, ok)
	assert.Equal(t, 0, uv.Branch)
	assert.IsType(t, NullValue{}, uv.V)

	buf.Reset()
	_, err = EncodeValue(&buf, schema, StringValue("hi"))
	require.NoError(t, err)
	got, err = DecodeValue(&buf, schema)
	require.NoError(t, err)
	uv, ok = got.(UnionValue)
	require.True(t, ok)
	assert.Equal(t, 1, uv.Branch)
	assert.Equal(t, StringValue("hi"), uv.V)
}

func TestEncodeUnionNoMatchingBranch(t *testing.T) {
	schema := MustParse(`["null","string"]`)
	var buf bytes.Buffer
	_, err := EncodeValue(&buf, schema, IntValue(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnexpectedSchema)
}
