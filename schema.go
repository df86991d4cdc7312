package avro

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ettle/strcase"
)

// SchemaTag is the compact runtime discriminator derived from the top-level
// schema. The Writer uses it for O(1) type-checking of incoming values.
type SchemaTag int

const (
	TagNull SchemaTag = iota
	TagBool
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagBytes
	TagString
	TagRecord
	TagEnum
	TagArray
	TagMap
	TagUnion
	TagFixed
)

var tagNames = [...]string{
	TagNull:   "Null",
	TagBool:   "Bool",
	TagInt:    "Int",
	TagLong:   "Long",
	TagFloat:  "Float",
	TagDouble: "Double",
	TagBytes:  "Bytes",
	TagString: "String",
	TagRecord: "Record",
	TagEnum:   "Enum",
	TagArray:  "Array",
	TagMap:    "Map",
	TagUnion:  "Union",
	TagFixed:  "Fixed",
}

// String renders the tag's lowercase name (e.g. "bytes", "record", "bool")
// used in error messages: the snake_case form of its tagNames entry. The
// schema JSON spelling of a primitive ("boolean") comes from jsonName.
func (t SchemaTag) String() string {
	if int(t) < 0 || int(t) >= len(tagNames) || tagNames[t] == "" {
		return fmt.Sprintf("SchemaTag(%d)", int(t))
	}
	return strcase.ToSnake(tagNames[t])
}

var primitiveTags = map[string]SchemaTag{
	"null":    TagNull,
	"boolean": TagBool,
	"int":     TagInt,
	"long":    TagLong,
	"float":   TagFloat,
	"double":  TagDouble,
	"bytes":   TagBytes,
	"string":  TagString,
}

var complexTags = map[string]SchemaTag{
	"record": TagRecord,
	"enum":   TagEnum,
	"array":  TagArray,
	"map":    TagMap,
	"fixed":  TagFixed,
	"union":  TagUnion,
}

// nameMatcher validates an Avro `name` or one namespace segment: it must
// start with a letter or underscore and contain only word characters.
var nameMatcher = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Field is one element of a record schema's `fields` array.
type Field struct {
	Name    string
	Doc     string
	Type    *SchemaTree
	Default Value
	HasDefault bool
}

// SchemaTree is the parsed representation of a schema JSON document. Only
// the attributes relevant to the complex kind named by Tag are populated.
type SchemaTree struct {
	Tag SchemaTag

	// record / enum / fixed (named types)
	Name      string
	Namespace string
	Doc       string

	// record
	Fields []*Field

	// enum
	Symbols []string

	// array
	Items *SchemaTree

	// map
	Values *SchemaTree

	// fixed
	Size int

	// union
	Branches []*SchemaTree

	// named is populated only on the tree returned directly from Parse; it
	// indexes every named type (record/enum/fixed) encountered anywhere in
	// the document by fullname.
	named map[string]*SchemaTree
}

// Fullname is `namespace.name` when a namespace is present, else just name.
func (s *SchemaTree) Fullname() string {
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "." + s.Name
}

func validateName(name string) error {
	if !nameMatcher.MatchString(name) {
		return wrapErr(ErrInvalidSchema, fmt.Sprintf("invalid name %q: must match %s", name, nameMatcher.String()))
	}
	return nil
}

func validateFullname(name, namespace string) error {
	if err := validateName(name); err != nil {
		return wrapErrCause(ErrInvalidSchema, "invalid-fullname", err)
	}
	if namespace == "" {
		return nil
	}
	for _, seg := range strings.Split(namespace, ".") {
		if err := validateName(seg); err != nil {
			return wrapErrCause(ErrInvalidSchema, fmt.Sprintf("invalid-fullname: namespace segment %q", seg), err)
		}
	}
	return nil
}
