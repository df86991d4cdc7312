/*
Package ocf implements encoding and decoding of Avro Object Container Files:
magic header, a string-to-bytes metadata map, a 16-byte sync marker, and a
sequence of optionally-compressed blocks. See the Avro specification for
background: http://avro.apache.org/docs/current/spec.html#Object+Container+Files
*/
package ocf

import (
	"github.com/ather-data/ravro-go"
)

const (
	schemaKey = "avro.schema"
	codecKey  = "avro.codec"
)

var magicBytes = [4]byte{'O', 'b', 'j', 1}

// CodecName names one of the block compression codecs recognised by this
// package, stored verbatim in the avro.codec metadata entry.
type CodecName string

const (
	Null    CodecName = "null"
	Deflate CodecName = "deflate"
	Snappy  CodecName = "snappy"
)

// Header is the decoded form of a container file's preamble: magic bytes, an
// arbitrary string-to-bytes metadata map, and the sync marker repeated after
// every block.
type Header struct {
	Magic [4]byte
	Meta  map[string][]byte
	Sync  [16]byte
}

// Schema returns the parsed avro.schema metadata entry.
func (h Header) Schema() (*avro.SchemaTree, error) {
	return avro.Parse(string(h.Meta[schemaKey]))
}

// Codec returns the avro.codec metadata entry, defaulting to Null when the
// key is absent (per §4, "absent ⇒ null").
func (h Header) Codec() CodecName {
	if c, ok := h.Meta[codecKey]; ok && len(c) > 0 {
		return CodecName(c)
	}
	return Null
}
