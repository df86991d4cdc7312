package avro

import (
	"fmt"
	"os"
	"sort"

	"github.com/mitchellh/mapstructure"
	jsoniter "github.com/json-iterator/go"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// parseCtx threads the named-type index through a single Parse call so that
// nested record/enum/fixed definitions (as in scenario S6's dashboard_stats
// example) are reachable by fullname afterwards via Lookup. The index is not
// consulted while parsing: a type referenced by name rather than defined
// inline is rejected as an unknown primitive type.
type parseCtx struct {
	named map[string]*SchemaTree
}

// Parse parses an Avro schema JSON document into a SchemaTree.
func Parse(schema string) (*SchemaTree, error) {
	var raw interface{}
	if err := jsonAPI.UnmarshalFromString(schema, &raw); err != nil {
		return nil, wrapErrCause(ErrInvalidSchema, "malformed schema JSON", err)
	}
	ctx := &parseCtx{named: map[string]*SchemaTree{}}
	tree, err := ctx.parseNode(raw)
	if err != nil {
		return nil, err
	}
	tree.named = ctx.named
	return tree, nil
}

// ParseFile parses a schema document read from path.
func ParseFile(path string) (*SchemaTree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wrapErrCause(ErrNotFound, path, err)
	}
	return Parse(string(data))
}

// MustParse is like Parse but panics on error; intended for package-level
// schema constants, mirroring the teacher's avro.MustParse.
func MustParse(schema string) *SchemaTree {
	s, err := Parse(schema)
	if err != nil {
		panic(err)
	}
	return s
}

// Lookup finds a previously-parsed named type (record/enum/fixed) by its
// fullname within the same schema document.
func (s *SchemaTree) Lookup(fullname string) (*SchemaTree, bool) {
	if s.named == nil {
		return nil, false
	}
	t, ok := s.named[fullname]
	return t, ok
}

func (c *parseCtx) parseNode(raw interface{}) (*SchemaTree, error) {
	switch v := raw.(type) {
	case string:
		tag, ok := primitiveTags[v]
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, fmt.Sprintf("unknown primitive type %q", v))
		}
		return &SchemaTree{Tag: tag}, nil
	case []interface{}:
		branches := make([]*SchemaTree, 0, len(v))
		for i, b := range v {
			bt, err := c.parseNode(b)
			if err != nil {
				return nil, wrapErrCause(ErrInvalidSchema, fmt.Sprintf("union branch %d", i), err)
			}
			branches = append(branches, bt)
		}
		return &SchemaTree{Tag: TagUnion, Branches: branches}, nil
	case map[string]interface{}:
		return c.parseObject(v)
	default:
		return nil, wrapErr(ErrInvalidSchema, fmt.Sprintf("unsupported schema node of type %T", raw))
	}
}

func (c *parseCtx) parseObject(v map[string]interface{}) (*SchemaTree, error) {
	typVal, ok := v["type"]
	if !ok {
		return nil, wrapErr(ErrInvalidSchema, `object schema missing required "type"`)
	}
	typStr, ok := typVal.(string)
	if !ok {
		return nil, wrapErr(ErrInvalidSchema, `"type" must be a JSON string`)
	}
	if pt, ok := primitiveTags[typStr]; ok {
		return &SchemaTree{Tag: pt}, nil
	}
	if _, ok := complexTags[typStr]; !ok {
		return nil, wrapErr(ErrInvalidSchema, fmt.Sprintf("unknown complex type %q", typStr))
	}
	switch typStr {
	case "record":
		return c.parseRecord(v)
	case "enum":
		return c.parseEnum(v)
	case "array":
		return c.parseArray(v)
	case "map":
		return c.parseMap(v)
	case "fixed":
		return c.parseFixed(v)
	default:
		// "union" has no object form; it only ever appears as a bare JSON
		// array, handled in parseNode before parseObject is reached.
		return nil, wrapErr(ErrInvalidSchema, `"type":"union" is not valid; unions are written as a JSON array`)
	}
}

func decodeWeak(raw interface{}, target interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           target,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}

type jsonRecordSchema struct {
	Name      string                   `mapstructure:"name"`
	Namespace string                   `mapstructure:"namespace"`
	Doc       string                   `mapstructure:"doc"`
	Fields    []map[string]interface{} `mapstructure:"fields"`
}

type jsonFieldSchema struct {
	Name string      `mapstructure:"name"`
	Doc  string       `mapstructure:"doc"`
	Type interface{} `mapstructure:"type"`
}

func (c *parseCtx) parseRecord(raw map[string]interface{}) (*SchemaTree, error) {
	var js jsonRecordSchema
	if err := decodeWeak(raw, &js); err != nil {
		return nil, wrapErrCause(ErrInvalidSchema, "malformed record schema", err)
	}
	if js.Name == "" {
		return nil, wrapErr(ErrInvalidSchema, `record schema missing required "name"`)
	}
	if js.Fields == nil {
		return nil, wrapErr(ErrInvalidSchema, `record schema missing required "fields"`)
	}
	if err := validateFullname(js.Name, js.Namespace); err != nil {
		return nil, err
	}

	tree := &SchemaTree{Tag: TagRecord, Name: js.Name, Namespace: js.Namespace, Doc: js.Doc}
	c.named[tree.Fullname()] = tree

	fields := make([]*Field, 0, len(js.Fields))
	for _, fr := range js.Fields {
		var jf jsonFieldSchema
		if err := decodeWeak(fr, &jf); err != nil {
			return nil, wrapErrCause(ErrInvalidSchema, "malformed record field", err)
		}
		if jf.Name == "" {
			return nil, wrapErr(ErrInvalidSchema, `record field missing required "name"`)
		}
		if jf.Type == nil {
			return nil, wrapErr(ErrInvalidSchema, fmt.Sprintf(`field %q missing required "type"`, jf.Name))
		}
		ft, err := c.parseNode(jf.Type)
		if err != nil {
			return nil, wrapErrCause(ErrInvalidSchema, fmt.Sprintf("field %q", jf.Name), err)
		}
		field := &Field{Name: jf.Name, Doc: jf.Doc, Type: ft}
		if rawDefault, hasDefault := fr["default"]; hasDefault {
			defVal, err := jsonToValue(ft, rawDefault)
			if err != nil {
				return nil, wrapErrCause(ErrInvalidSchema, fmt.Sprintf("field %q default", jf.Name), err)
			}
			field.Default = defVal
			field.HasDefault = true
		}
		fields = append(fields, field)
	}
	tree.Fields = fields
	return tree, nil
}

type jsonEnumSchema struct {
	Name      string   `mapstructure:"name"`
	Namespace string   `mapstructure:"namespace"`
	Doc       string   `mapstructure:"doc"`
	Symbols   []string `mapstructure:"symbols"`
}

func (c *parseCtx) parseEnum(raw map[string]interface{}) (*SchemaTree, error) {
	var js jsonEnumSchema
	if err := decodeWeak(raw, &js); err != nil {
		return nil, wrapErrCause(ErrInvalidSchema, "malformed enum schema", err)
	}
	if js.Name == "" {
		return nil, wrapErr(ErrInvalidSchema, `enum schema missing required "name"`)
	}
	if len(js.Symbols) == 0 {
		return nil, wrapErr(ErrInvalidSchema, `enum schema missing required "symbols"`)
	}
	if err := validateFullname(js.Name, js.Namespace); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(js.Symbols))
	for _, sym := range js.Symbols {
		if _, dup := seen[sym]; dup {
			return nil, wrapErr(ErrInvalidSchema, fmt.Sprintf("duplicate enum symbol %q", sym))
		}
		seen[sym] = struct{}{}
	}
	tree := &SchemaTree{Tag: TagEnum, Name: js.Name, Namespace: js.Namespace, Doc: js.Doc, Symbols: js.Symbols}
	c.named[tree.Fullname()] = tree
	return tree, nil
}

type jsonArraySchema struct {
	Items interface{} `mapstructure:"items"`
}

func (c *parseCtx) parseArray(raw map[string]interface{}) (*SchemaTree, error) {
	var js jsonArraySchema
	if err := decodeWeak(raw, &js); err != nil {
		return nil, wrapErrCause(ErrInvalidSchema, "malformed array schema", err)
	}
	if js.Items == nil {
		return nil, wrapErr(ErrInvalidSchema, `array schema missing required "items"`)
	}
	items, err := c.parseNode(js.Items)
	if err != nil {
		return nil, wrapErrCause(ErrInvalidSchema, "array items", err)
	}
	return &SchemaTree{Tag: TagArray, Items: items}, nil
}

type jsonMapSchema struct {
	Values interface{} `mapstructure:"values"`
}

func (c *parseCtx) parseMap(raw map[string]interface{}) (*SchemaTree, error) {
	var js jsonMapSchema
	if err := decodeWeak(raw, &js); err != nil {
		return nil, wrapErrCause(ErrInvalidSchema, "malformed map schema", err)
	}
	if js.Values == nil {
		return nil, wrapErr(ErrInvalidSchema, `map schema missing required "values"`)
	}
	values, err := c.parseNode(js.Values)
	if err != nil {
		return nil, wrapErrCause(ErrInvalidSchema, "map values", err)
	}
	return &SchemaTree{Tag: TagMap, Values: values}, nil
}

type jsonFixedSchema struct {
	Name      string `mapstructure:"name"`
	Namespace string `mapstructure:"namespace"`
	Size      int    `mapstructure:"size"`
}

func (c *parseCtx) parseFixed(raw map[string]interface{}) (*SchemaTree, error) {
	var js jsonFixedSchema
	if err := decodeWeak(raw, &js); err != nil {
		return nil, wrapErrCause(ErrInvalidSchema, "malformed fixed schema", err)
	}
	if js.Name == "" {
		return nil, wrapErr(ErrInvalidSchema, `fixed schema missing required "name"`)
	}
	if _, hasSize := raw["size"]; !hasSize {
		return nil, wrapErr(ErrInvalidSchema, `fixed schema missing required "size"`)
	}
	if js.Size < 0 {
		return nil, wrapErr(ErrInvalidSchema, `fixed "size" must be non-negative`)
	}
	if err := validateFullname(js.Name, js.Namespace); err != nil {
		return nil, err
	}
	tree := &SchemaTree{Tag: TagFixed, Name: js.Name, Namespace: js.Namespace, Size: js.Size}
	c.named[tree.Fullname()] = tree
	return tree, nil
}

// jsonToValue converts a decoded JSON literal (as produced by jsoniter's
// generic unmarshal: string/float64/bool/nil/[]interface{}/map[string]interface{})
// into a Value shaped by schema. Used for record field defaults.
func jsonToValue(schema *SchemaTree, raw interface{}) (Value, error) {
	switch schema.Tag {
	case TagNull:
		return NullValue{}, nil
	case TagBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected boolean default")
		}
		return BoolValue(b), nil
	case TagInt:
		f, ok := raw.(float64)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected numeric default")
		}
		return IntValue(int32(f)), nil
	case TagLong:
		f, ok := raw.(float64)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected numeric default")
		}
		return LongValue(int64(f)), nil
	case TagFloat:
		f, ok := raw.(float64)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected numeric default")
		}
		return FloatValue(float32(f)), nil
	case TagDouble:
		f, ok := raw.(float64)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected numeric default")
		}
		return DoubleValue(f), nil
	case TagBytes:
		s, ok := raw.(string)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected string default for bytes")
		}
		return BytesValue([]byte(s)), nil
	case TagString:
		s, ok := raw.(string)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected string default")
		}
		return StringValue(s), nil
	case TagFixed:
		s, ok := raw.(string)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected string default for fixed")
		}
		return FixedValue([]byte(s)), nil
	case TagEnum:
		s, ok := raw.(string)
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected string default for enum")
		}
		return EnumValue{Schema: schema, Symbol: s}, nil
	case TagArray:
		arr, ok := raw.([]interface{})
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected array default")
		}
		items := make(ArrayValue, 0, len(arr))
		for _, it := range arr {
			v, err := jsonToValue(schema.Items, it)
			if err != nil {
				return nil, err
			}
			items = append(items, v)
		}
		return items, nil
	case TagMap:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected map default")
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		entries := make(MapValue, 0, len(keys))
		for _, k := range keys {
			v, err := jsonToValue(schema.Values, m[k])
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapEntry{Key: k, V: v})
		}
		return entries, nil
	case TagRecord:
		m, ok := raw.(map[string]interface{})
		if !ok {
			return nil, wrapErr(ErrInvalidSchema, "expected record default")
		}
		fields := make([]FieldValue, 0, len(schema.Fields))
		for _, f := range schema.Fields {
			rv, present := m[f.Name]
			if !present {
				if !f.HasDefault {
					return nil, wrapErr(ErrInvalidSchema, fmt.Sprintf("record default missing field %q", f.Name))
				}
				fields = append(fields, FieldValue{Name: f.Name, V: f.Default})
				continue
			}
			v, err := jsonToValue(f.Type, rv)
			if err != nil {
				return nil, err
			}
			fields = append(fields, FieldValue{Name: f.Name, V: v})
		}
		return &RecordValue{Fields: fields}, nil
	case TagUnion:
		if len(schema.Branches) == 0 {
			return nil, wrapErr(ErrInvalidSchema, "union default with no branches")
		}
		if raw == nil {
			if schema.Branches[0].Tag == TagNull {
				return NullValue{}, nil
			}
		}
		v, err := jsonToValue(schema.Branches[0], raw)
		if err != nil {
			return nil, err
		}
		return UnionValue{Branch: 0, V: v}, nil
	default:
		return nil, wrapErr(ErrInvalidSchema, fmt.Sprintf("unsupported default for tag %s", schema.Tag))
	}
}
