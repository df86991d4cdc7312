package avro

import (
	"fmt"
	"io"
)

// valueMatchesTag reports whether v is an acceptable value for a top-level
// (or union-branch) schema of the given tag, per the acceptance table in
// §4.6. Int and Long both accept either an IntValue or a LongValue, since
// both travel the same zig-zag-long wire path.
func valueMatchesTag(v Value, tag SchemaTag) bool {
	switch tag {
	case TagNull:
		_, ok := v.(NullValue)
		return ok
	case TagBool:
		_, ok := v.(BoolValue)
		return ok
	case TagInt, TagLong:
		switch v.(type) {
		case IntValue, LongValue:
			return true
		}
		return false
	case TagFloat:
		_, ok := v.(FloatValue)
		return ok
	case TagDouble:
		_, ok := v.(DoubleValue)
		return ok
	case TagBytes:
		_, ok := v.(BytesValue)
		return ok
	case TagString:
		_, ok := v.(StringValue)
		return ok
	case TagRecord:
		_, ok := v.(*RecordValue)
		return ok
	case TagEnum:
		_, ok := v.(EnumValue)
		return ok
	case TagArray:
		_, ok := v.(ArrayValue)
		return ok
	case TagMap:
		_, ok := v.(MapValue)
		return ok
	case TagFixed:
		_, ok := v.(FixedValue)
		return ok
	default:
		return false
	}
}

// ValueMatchesTag is the exported form of valueMatchesTag, used by the ocf
// package to apply the same acceptance rule (§4.6) at the Writer boundary.
func ValueMatchesTag(v Value, tag SchemaTag) bool {
	return valueMatchesTag(v, tag)
}

// EncodeValue writes v to w following the binary encoding schema prescribes,
// recursing into record fields, union branches, and array/map items.
func EncodeValue(w io.Writer, schema *SchemaTree, v Value) (int, error) {
	switch schema.Tag {
	case TagNull:
		if _, ok := v.(NullValue); !ok {
			return 0, contractViolation(TagNull, v)
		}
		return 0, nil
	case TagBool:
		b, err := AsBool(v)
		if err != nil {
			return 0, err
		}
		return encodeBool(w, b)
	case TagInt:
		i, err := AsInt(v)
		if err == nil {
			return encodeLong(w, int64(i))
		}
		l, err2 := AsLong(v)
		if err2 != nil {
			return 0, err
		}
		return encodeLong(w, l)
	case TagLong:
		l, err := AsLong(v)
		if err != nil {
			return 0, err
		}
		return encodeLong(w, l)
	case TagFloat:
		f, err := AsFloat(v)
		if err != nil {
			return 0, err
		}
		return encodeFloat(w, f)
	case TagDouble:
		d, err := AsDouble(v)
		if err != nil {
			return 0, err
		}
		return encodeDouble(w, d)
	case TagBytes:
		b, err := AsBytes(v)
		if err != nil {
			return 0, err
		}
		return encodeBytes(w, b)
	case TagString:
		s, err := AsString(v)
		if err != nil {
			return 0, err
		}
		return encodeString(w, s)
	case TagRecord:
		return encodeRecord(w, schema, v)
	case TagEnum:
		return encodeEnum(w, schema, v)
	case TagArray:
		return encodeArray(w, schema, v)
	case TagMap:
		return encodeMap(w, schema, v)
	case TagFixed:
		return encodeFixed(w, schema, v)
	case TagUnion:
		return encodeUnion(w, schema, v)
	default:
		return 0, wrapErr(ErrEncode, fmt.Sprintf("unsupported schema tag %s", schema.Tag))
	}
}

// DecodeValue reads one value shaped by schema from r.
func DecodeValue(r io.Reader, schema *SchemaTree) (Value, error) {
	switch schema.Tag {
	case TagNull:
		return NullValue{}, nil
	case TagBool:
		b, err := decodeBool(r)
		if err != nil {
			return nil, err
		}
		return BoolValue(b), nil
	case TagInt:
		l, err := decodeLong(r)
		if err != nil {
			return nil, err
		}
		return IntValue(int32(l)), nil
	case TagLong:
		l, err := decodeLong(r)
		if err != nil {
			return nil, err
		}
		return LongValue(l), nil
	case TagFloat:
		f, err := decodeFloat(r)
		if err != nil {
			return nil, err
		}
		return FloatValue(f), nil
	case TagDouble:
		d, err := decodeDouble(r)
		if err != nil {
			return nil, err
		}
		return DoubleValue(d), nil
	case TagBytes:
		b, err := decodeBytes(r)
		if err != nil {
			return nil, err
		}
		return BytesValue(b), nil
	case TagString:
		s, err := decodeString(r)
		if err != nil {
			return nil, err
		}
		return StringValue(s), nil
	case TagRecord:
		return decodeRecord(r, schema)
	case TagEnum:
		return decodeEnum(r, schema)
	case TagArray:
		return decodeArray(r, schema)
	case TagMap:
		return decodeMap(r, schema)
	case TagFixed:
		return decodeFixed(r, schema)
	case TagUnion:
		return decodeUnion(r, schema)
	default:
		return nil, wrapErr(ErrShortRead, fmt.Sprintf("unsupported schema tag %s", schema.Tag))
	}
}

// encodeRecord writes each schema field in declaration order (§4.8), filling
// in a declared default for any field the caller omitted and rejecting both
// missing-without-default and extra fields.
func encodeRecord(w io.Writer, schema *SchemaTree, v Value) (int, error) {
	rec, err := AsRecord(v)
	if err != nil {
		return 0, err
	}
	for _, rf := range rec.Fields {
		found := false
		for _, f := range schema.Fields {
			if f.Name == rf.Name {
				found = true
				break
			}
		}
		if !found {
			return 0, wrapErr(ErrEncode, fmt.Sprintf("missing-or-extra-field: unexpected field %q", rf.Name))
		}
	}

	total := 0
	for _, f := range schema.Fields {
		fv, ok := rec.Get(f.Name)
		if !ok {
			if !f.HasDefault {
				return total, wrapErr(ErrEncode, fmt.Sprintf("missing-or-extra-field: field %q not supplied and has no default", f.Name))
			}
			fv = f.Default
		}
		n, err := EncodeValue(w, f.Type, fv)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func decodeRecord(r io.Reader, schema *SchemaTree) (Value, error) {
	fields := make([]FieldValue, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		v, err := DecodeValue(r, f.Type)
		if err != nil {
			return nil, err
		}
		fields = append(fields, FieldValue{Name: f.Name, V: v})
	}
	return &RecordValue{Fields: fields}, nil
}

func encodeEnum(w io.Writer, schema *SchemaTree, v Value) (int, error) {
	ev, ok := v.(EnumValue)
	if !ok {
		return 0, contractViolation(TagEnum, v)
	}
	if ev.Symbol == "" {
		return 0, wrapErr(ErrEncode, "enum value has no chosen symbol")
	}
	idx := -1
	for i, s := range schema.Symbols {
		if s == ev.Symbol {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, wrapErr(ErrEncode, fmt.Sprintf("symbol %q is not declared in schema", ev.Symbol))
	}
	return encodeLong(w, int64(idx))
}

func decodeEnum(r io.Reader, schema *SchemaTree) (Value, error) {
	idx, err := decodeLong(r)
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(schema.Symbols) {
		return nil, wrapErr(ErrOverflow, "enum symbol index out of range")
	}
	return EnumValue{Schema: schema, Symbol: schema.Symbols[idx]}, nil
}

func encodeArray(w io.Writer, schema *SchemaTree, v Value) (int, error) {
	arr, err := AsArray(v)
	if err != nil {
		return 0, err
	}
	total := 0
	if len(arr) > 0 {
		n, err := encodeLong(w, int64(len(arr)))
		total += n
		if err != nil {
			return total, err
		}
		for _, item := range arr {
			n, err := EncodeValue(w, schema.Items, item)
			total += n
			if err != nil {
				return total, err
			}
		}
	}
	n, err := encodeLong(w, 0)
	total += n
	return total, err
}

func decodeArray(r io.Reader, schema *SchemaTree) (Value, error) {
	var items ArrayValue
	for {
		count, err := decodeLong(r)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			break
		}
		if count < 0 {
			// Negative count: |count| items follow, preceded by a byte-size
			// hint long which readers may use to skip the block wholesale.
			if _, err := decodeLong(r); err != nil {
				return nil, err
			}
			count = -count
		}
		for i := int64(0); i < count; i++ {
			item, err := DecodeValue(r, schema.Items)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}
	if items == nil {
		items = ArrayValue{}
	}
	return items, nil
}

func encodeMap(w io.Writer, schema *SchemaTree, v Value) (int, error) {
	entries, err := AsMap(v)
	if err != nil {
		return 0, err
	}
	total := 0
	if len(entries) > 0 {
		n, err := encodeLong(w, int64(len(entries)))
		total += n
		if err != nil {
			return total, err
		}
		for _, e := range entries {
			n, err := encodeString(w, e.Key)
			total += n
			if err != nil {
				return total, err
			}
			n, err = EncodeValue(w, schema.Values, e.V)
			total += n
			if err != nil {
				return total, err
			}
		}
	}
	n, err := encodeLong(w, 0)
	total += n
	return total, err
}

func decodeMap(r io.Reader, schema *SchemaTree) (Value, error) {
	var entries MapValue
	for {
		count, err := decodeLong(r)
		if err != nil {
			return nil, err
		}
		if count == 0 {
			break
		}
		if count < 0 {
			if _, err := decodeLong(r); err != nil {
				return nil, err
			}
			count = -count
		}
		for i := int64(0); i < count; i++ {
			key, err := decodeString(r)
			if err != nil {
				return nil, err
			}
			val, err := DecodeValue(r, schema.Values)
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapEntry{Key: key, V: val})
		}
	}
	if entries == nil {
		entries = MapValue{}
	}
	return entries, nil
}

func encodeFixed(w io.Writer, schema *SchemaTree, v Value) (int, error) {
	b, err := AsFixed(v)
	if err != nil {
		return 0, err
	}
	if len(b) != schema.Size {
		return 0, wrapErr(ErrEncode, fmt.Sprintf("fixed value length %d does not match schema size %d", len(b), schema.Size))
	}
	if len(b) == 0 {
		return 0, nil
	}
	if _, err := w.Write(b); err != nil {
		return 0, wrapErrCause(ErrIO, "write fixed", err)
	}
	return len(b), nil
}

func decodeFixed(r io.Reader, schema *SchemaTree) (Value, error) {
	buf := make([]byte, schema.Size)
	if schema.Size > 0 {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, wrapErrCause(ErrShortRead, "read fixed", err)
		}
	}
	return FixedValue(buf), nil
}

func encodeUnion(w io.Writer, schema *SchemaTree, v Value) (int, error) {
	if uv, ok := v.(UnionValue); ok {
		if uv.Branch < 0 || uv.Branch >= len(schema.Branches) {
			return 0, wrapErr(ErrUnexpectedSchema, "union branch index out of range")
		}
		n1, err := encodeLong(w, int64(uv.Branch))
		if err != nil {
			return n1, err
		}
		n2, err := EncodeValue(w, schema.Branches[uv.Branch], uv.V)
		return n1 + n2, err
	}
	for i, b := range schema.Branches {
		if valueMatchesTag(v, b.Tag) {
			n1, err := encodeLong(w, int64(i))
			if err != nil {
				return n1, err
			}
			n2, err := EncodeValue(w, b, v)
			return n1 + n2, err
		}
	}
	return 0, wrapErr(ErrUnexpectedSchema, "no union branch matches the supplied value")
}

func decodeUnion(r io.Reader, schema *SchemaTree) (Value, error) {
	idx, err := decodeLong(r)
	if err != nil {
		return nil, err
	}
	if idx < 0 || int(idx) >= len(schema.Branches) {
		return nil, wrapErr(ErrOverflow, "union branch index out of range")
	}
	v, err := DecodeValue(r, schema.Branches[idx])
	if err != nil {
		return nil, err
	}
	return UnionValue{Branch: int(idx), V: v}, nil
}
