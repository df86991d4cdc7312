package avro

// String renders the canonical JSON text of the schema, the form stored in
// an OCF header's avro.schema metadata entry and accepted back by Parse.
func (s *SchemaTree) String() string {
	node := s.toJSONNode()
	out, err := jsonAPI.MarshalToString(node)
	if err != nil {
		// toJSONNode only ever produces jsoniter-marshalable primitives,
		// maps and slices; a failure here means a caller built a SchemaTree
		// by hand with a value jsonToValue could never have produced.
		panic(wrapErrCause(ErrInvalidSchema, "schema could not be rendered to JSON", err))
	}
	return out
}

func (s *SchemaTree) toJSONNode() interface{} {
	switch s.Tag {
	case TagNull, TagBool, TagInt, TagLong, TagFloat, TagDouble, TagBytes, TagString:
		return s.Tag.jsonName()
	case TagUnion:
		branches := make([]interface{}, 0, len(s.Branches))
		for _, b := range s.Branches {
			branches = append(branches, b.toJSONNode())
		}
		return branches
	case TagRecord:
		fields := make([]interface{}, 0, len(s.Fields))
		for _, f := range s.Fields {
			field := map[string]interface{}{
				"name": f.Name,
				"type": f.Type.toJSONNode(),
			}
			if f.Doc != "" {
				field["doc"] = f.Doc
			}
			if f.HasDefault {
				field["default"] = valueToJSON(f.Default)
			}
			fields = append(fields, field)
		}
		node := map[string]interface{}{
			"type":   "record",
			"name":   s.Name,
			"fields": fields,
		}
		if s.Namespace != "" {
			node["namespace"] = s.Namespace
		}
		if s.Doc != "" {
			node["doc"] = s.Doc
		}
		return node
	case TagEnum:
		node := map[string]interface{}{
			"type":    "enum",
			"name":    s.Name,
			"symbols": s.Symbols,
		}
		if s.Namespace != "" {
			node["namespace"] = s.Namespace
		}
		if s.Doc != "" {
			node["doc"] = s.Doc
		}
		return node
	case TagArray:
		return map[string]interface{}{
			"type":  "array",
			"items": s.Items.toJSONNode(),
		}
	case TagMap:
		return map[string]interface{}{
			"type":   "map",
			"values": s.Values.toJSONNode(),
		}
	case TagFixed:
		node := map[string]interface{}{
			"type": "fixed",
			"name": s.Name,
			"size": s.Size,
		}
		if s.Namespace != "" {
			node["namespace"] = s.Namespace
		}
		return node
	default:
		return s.Tag.jsonName()
	}
}

// jsonName is the Avro schema JSON spelling of a primitive tag ("boolean",
// not "bool"), distinct from String's snake_case rendering used in error
// messages.
func (t SchemaTag) jsonName() string {
	switch t {
	case TagNull:
		return "null"
	case TagBool:
		return "boolean"
	case TagInt:
		return "int"
	case TagLong:
		return "long"
	case TagFloat:
		return "float"
	case TagDouble:
		return "double"
	case TagBytes:
		return "bytes"
	case TagString:
		return "string"
	default:
		return t.String()
	}
}

// valueToJSON is the inverse of jsonToValue, used to render a field's parsed
// default back into a JSON-marshalable literal when re-serialising a schema.
func valueToJSON(v Value) interface{} {
	switch t := v.(type) {
	case NullValue:
		return nil
	case BoolValue:
		return bool(t)
	case IntValue:
		return int32(t)
	case LongValue:
		return int64(t)
	case FloatValue:
		return float32(t)
	case DoubleValue:
		return float64(t)
	case BytesValue:
		return string(t)
	case StringValue:
		return string(t)
	case FixedValue:
		return string(t)
	case EnumValue:
		return t.Symbol
	case ArrayValue:
		out := make([]interface{}, 0, len(t))
		for _, item := range t {
			out = append(out, valueToJSON(item))
		}
		return out
	case MapValue:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = valueToJSON(e.V)
		}
		return out
	case *RecordValue:
		out := make(map[string]interface{}, len(t.Fields))
		for _, f := range t.Fields {
			out[f.Name] = valueToJSON(f.V)
		}
		return out
	case UnionValue:
		return valueToJSON(t.V)
	default:
		return nil
	}
}
