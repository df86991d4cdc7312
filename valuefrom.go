package avro

import (
	"fmt"
	"sort"

	"github.com/modern-go/reflect2"
)

// FromGo converts a native Go value into the Value shape dictated by schema,
// using reflect2 to dispatch on the concrete kind without the allocation cost
// of the standard reflect package on the hot encode path. Most callers that
// already build Values directly (IntValue(3), etc.) never need this; it
// exists for callers migrating plain Go structs/maps/slices into the OCF
// writer, mirroring how the teacher's decoder hands back native Go values
// rather than forcing callers through a value-builder API.
func FromGo(schema *SchemaTree, x interface{}) (Value, error) {
	if x == nil {
		if schema.Tag == TagNull {
			return NullValue{}, nil
		}
		if schema.Tag == TagUnion {
			for i, b := range schema.Branches {
				if b.Tag == TagNull {
					return UnionValue{Branch: i, V: NullValue{}}, nil
				}
			}
		}
		return nil, wrapErr(ErrUnexpectedSchema, "nil Go value is not valid for a non-nullable schema")
	}

	if schema.Tag == TagUnion {
		for i, b := range schema.Branches {
			v, err := FromGo(b, x)
			if err == nil {
				return UnionValue{Branch: i, V: v}, nil
			}
		}
		return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("no union branch accepts Go value of type %T", x))
	}

	rtype := reflect2.TypeOf(x)
	switch schema.Tag {
	case TagBool:
		b, ok := x.(bool)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected bool, got %T", x))
		}
		return BoolValue(b), nil
	case TagInt:
		n, ok := asInt64(x)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected integer, got %T", x))
		}
		return IntValue(int32(n)), nil
	case TagLong:
		n, ok := asInt64(x)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected integer, got %T", x))
		}
		return LongValue(n), nil
	case TagFloat:
		f, ok := asFloat64(x)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected float, got %T", x))
		}
		return FloatValue(float32(f)), nil
	case TagDouble:
		f, ok := asFloat64(x)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected float, got %T", x))
		}
		return DoubleValue(f), nil
	case TagBytes:
		switch v := x.(type) {
		case []byte:
			return BytesValue(v), nil
		default:
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected []byte, got %T", x))
		}
	case TagString:
		s, ok := x.(string)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected string, got %T", x))
		}
		return StringValue(s), nil
	case TagFixed:
		b, ok := x.([]byte)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected []byte, got %T", x))
		}
		if len(b) != schema.Size {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("fixed value length %d does not match schema size %d", len(b), schema.Size))
		}
		return FixedValue(b), nil
	case TagEnum:
		s, ok := x.(string)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected string symbol, got %T", x))
		}
		return EnumValue{Schema: schema, Symbol: s}, nil
	case TagArray:
		return fromGoArray(schema, x, rtype)
	case TagMap:
		return fromGoMap(schema, x)
	case TagRecord:
		return fromGoRecord(schema, x)
	default:
		return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("unsupported schema tag %s", schema.Tag))
	}
}

func asInt64(x interface{}) (int64, bool) {
	switch v := x.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	default:
		return 0, false
	}
}

func asFloat64(x interface{}) (float64, bool) {
	switch v := x.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

func fromGoArray(schema *SchemaTree, x interface{}, rtype reflect2.Type) (Value, error) {
	sliceType, ok := rtype.(*reflect2.UnsafeSliceType)
	if !ok {
		return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected a slice for array schema, got %T", x))
	}
	length := sliceType.UnsafeLengthOf(reflect2.PtrOf(x))
	items := make(ArrayValue, 0, length)
	for i := 0; i < length; i++ {
		elemPtr := sliceType.UnsafeGetIndex(reflect2.PtrOf(x), i)
		elem := sliceType.Elem().UnsafeIndirect(elemPtr)
		v, err := FromGo(schema.Items, elem)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}

func fromGoMap(schema *SchemaTree, x interface{}) (Value, error) {
	m, ok := x.(map[string]interface{})
	if ok {
		return fromGenericMap(schema, m)
	}
	mt := reflect2.TypeOf(x)
	mapType, ok := mt.(*reflect2.UnsafeMapType)
	if !ok {
		return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected a map for map schema, got %T", x))
	}
	keys := make([]string, 0)
	values := map[string]interface{}{}
	iter := mapType.Iterate(reflect2.PtrOf(x))
	for iter.HasNext() {
		kPtr, vPtr := iter.Next()
		k := mapType.Key().UnsafeIndirect(kPtr)
		ks, ok := k.(string)
		if !ok {
			return nil, wrapErr(ErrUnexpectedSchema, "map schema requires string keys")
		}
		keys = append(keys, ks)
		values[ks] = mapType.Elem().UnsafeIndirect(vPtr)
	}
	sort.Strings(keys)
	entries := make(MapValue, 0, len(keys))
	for _, k := range keys {
		v, err := FromGo(schema.Values, values[k])
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: k, V: v})
	}
	return entries, nil
}

func fromGenericMap(schema *SchemaTree, m map[string]interface{}) (Value, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	entries := make(MapValue, 0, len(keys))
	for _, k := range keys {
		v, err := FromGo(schema.Values, m[k])
		if err != nil {
			return nil, err
		}
		entries = append(entries, MapEntry{Key: k, V: v})
	}
	return entries, nil
}

func fromGoRecord(schema *SchemaTree, x interface{}) (Value, error) {
	if m, ok := x.(map[string]interface{}); ok {
		fields := make([]FieldValue, 0, len(schema.Fields))
		for _, f := range schema.Fields {
			rv, present := m[f.Name]
			if !present {
				if !f.HasDefault {
					return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("record default missing field %q", f.Name))
				}
				fields = append(fields, FieldValue{Name: f.Name, V: f.Default})
				continue
			}
			v, err := FromGo(f.Type, rv)
			if err != nil {
				return nil, err
			}
			fields = append(fields, FieldValue{Name: f.Name, V: v})
		}
		return &RecordValue{Fields: fields}, nil
	}

	structType := reflect2.TypeOf(x)
	st, ok := structType.(*reflect2.UnsafeStructType)
	if !ok {
		return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("expected a struct or map[string]interface{} for record schema, got %T", x))
	}
	fields := make([]FieldValue, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		sf := st.FieldByName(exportedFieldName(f.Name))
		if sf == nil {
			if !f.HasDefault {
				return nil, wrapErr(ErrUnexpectedSchema, fmt.Sprintf("struct %T has no field matching %q", x, f.Name))
			}
			fields = append(fields, FieldValue{Name: f.Name, V: f.Default})
			continue
		}
		fv := sf.Get(x)
		v, err := FromGo(f.Type, fv)
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldValue{Name: f.Name, V: v})
	}
	return &RecordValue{Fields: fields}, nil
}

// exportedFieldName titlecases the first rune of an Avro field name so it can
// match the exported Go struct field convention (e.g. "user_id" stays as-is
// since Go identifiers compare case-sensitively here; callers whose structs
// use CamelCase field names matching the schema name exactly will match).
func exportedFieldName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	if r[0] >= 'a' && r[0] <= 'z' {
		r[0] = r[0] - 'a' + 'A'
	}
	return string(r)
}
