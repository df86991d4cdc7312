/*
Package avro implements the core of an Apache Avro 1.8 data model: a tagged
Value sum type covering every Avro primitive and complex type, a JSON schema
parser producing a SchemaTree and its compact SchemaTag projection, and the
binary encode/decode rules for every variant.

Object Container File assembly and iteration — the block-structured,
optionally-compressed file format built on top of this package's Value and
SchemaTree — lives in the ocf subpackage.

This package does not perform schema resolution between distinct reader and
writer schemas, does not implement RPC or a schema registry, and does not
support named-type references that resolve outside a single schema document.
*/
package avro
