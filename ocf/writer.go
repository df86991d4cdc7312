package ocf

import (
	"bytes"
	"crypto/rand"
	"io"
	"sort"

	avro "github.com/ather-data/ravro-go"
)

const defaultBlockLength = 4096

// WriterOption configures a Writer at construction time, in the spirit of
// the teacher's EncoderFunc options.
type WriterOption func(*writerConfig)

type writerConfig struct {
	blockLength int
	codecName   CodecName
	metadata    map[string][]byte
	sync        *[16]byte
}

// WithBlockLength overrides the default implicit-commit threshold of 4096
// values. Implementations may expose values in the range [32, 2^30]; this
// package does not clamp, since the teacher's own WithBlockLength did not.
func WithBlockLength(n int) WriterOption {
	return func(c *writerConfig) { c.blockLength = n }
}

// WithCodec selects the block compression codec. The default is Null.
func WithCodec(name CodecName) WriterOption {
	return func(c *writerConfig) { c.codecName = name }
}

// WithMetadata merges additional entries into the header metadata map,
// alongside the required avro.schema/avro.codec entries.
func WithMetadata(meta map[string][]byte) WriterOption {
	return func(c *writerConfig) {
		for k, v := range meta {
			c.metadata[k] = v
		}
	}
}

// WithSyncMarker fixes the 16-byte sync marker instead of drawing one from
// crypto/rand. Exists for reproducible tests and for AppendTo, which reuses
// the existing file's marker.
func WithSyncMarker(sync [16]byte) WriterOption {
	return func(c *writerConfig) { c.sync = &sync }
}

// Writer assembles values into an Avro Object Container File. It owns two
// buffers exclusively: the current block's encoded-but-uncommitted values,
// and the master buffer holding everything already committed, header
// included (§3, Ownership/lifecycle).
type Writer struct {
	schema *avro.SchemaTree
	codec  codec
	sync   [16]byte
	meta   map[string][]byte

	blockLength int
	blockCount  int
	block       bytes.Buffer
	master      bytes.Buffer
}

// NewWriter parses schemaJSON and returns a Writer with the header already
// written into its master buffer.
func NewWriter(schemaJSON string, opts ...WriterOption) (*Writer, error) {
	schema, err := avro.Parse(schemaJSON)
	if err != nil {
		return nil, err
	}

	cfg := writerConfig{
		blockLength: defaultBlockLength,
		codecName:   Null,
		metadata:    map[string][]byte{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c, err := resolveCodec(cfg.codecName)
	if err != nil {
		return nil, err
	}

	w := &Writer{
		schema:      schema,
		codec:       c,
		blockLength: cfg.blockLength,
		meta:        cfg.metadata,
	}

	if cfg.sync != nil {
		w.sync = *cfg.sync
	} else if _, err := rand.Read(w.sync[:]); err != nil {
		return nil, avro.WrapIO("generate sync marker", err)
	}

	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Writer) writeHeader() error {
	w.meta[schemaKey] = []byte(w.schema.String())
	w.meta[codecKey] = []byte(w.codec.name())

	if _, err := w.master.Write(magicBytes[:]); err != nil {
		return avro.WrapIO("write magic", err)
	}
	if _, err := encodeMetaMap(&w.master, w.meta); err != nil {
		return err
	}
	if _, err := w.master.Write(w.sync[:]); err != nil {
		return avro.WrapIO("write sync", err)
	}
	return nil
}

var metaValueSchema = &avro.SchemaTree{Tag: avro.TagMap, Values: &avro.SchemaTree{Tag: avro.TagBytes}}

// encodeMetaMap writes the header's metadata using the ordinary Map value
// encoding (§4.4), so the header never needs a bespoke framing rule of its
// own. Keys are sorted for byte-reproducible headers within a run.
func encodeMetaMap(w io.Writer, meta map[string][]byte) (int, error) {
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make(avro.MapValue, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, avro.MapEntry{Key: k, V: avro.BytesValue(meta[k])})
	}
	return avro.EncodeValue(w, metaValueSchema, entries)
}

// Schema returns the schema the writer was constructed with.
func (w *Writer) Schema() *avro.SchemaTree {
	return w.schema
}

// Write type-checks v against the top-level schema (§4.6's acceptance
// table), encodes it into the block buffer, and implicitly commits the block
// once blockLength values have accumulated. On acceptance failure, state is
// left unmodified.
func (w *Writer) Write(v avro.Value) error {
	if !valueMatchesSchema(v, w.schema) {
		return avro.WrapUnexpectedSchema(w.schema.Tag)
	}
	if _, err := avro.EncodeValue(&w.block, w.schema, v); err != nil {
		return err
	}
	w.blockCount++
	if w.blockCount >= w.blockLength {
		return w.CommitBlock()
	}
	return nil
}

// valueMatchesSchema delegates to the package's exported acceptance check;
// Union is accepted whenever some branch matches, mirroring the table's tie
// break of "first matching branch in declaration order" at encode time.
func valueMatchesSchema(v avro.Value, schema *avro.SchemaTree) bool {
	if schema.Tag == avro.TagUnion {
		if uv, ok := v.(avro.UnionValue); ok {
			return uv.Branch >= 0 && uv.Branch < len(schema.Branches)
		}
		for _, b := range schema.Branches {
			if avro.ValueMatchesTag(v, b.Tag) {
				return true
			}
		}
		return false
	}
	return avro.ValueMatchesTag(v, schema.Tag)
}

// CommitBlock flushes the current block if non-empty: emits long(count),
// long(payload length), the (possibly compressed) payload, and the sync
// marker, then resets the block buffer. It is a no-op when blockCount is 0.
func (w *Writer) CommitBlock() error {
	if w.blockCount == 0 {
		return nil
	}

	payload, err := w.codec.encode(w.block.Bytes())
	if err != nil {
		return err
	}

	if _, err := avro.EncodeValue(&w.master, longSchema, avro.LongValue(int64(w.blockCount))); err != nil {
		return err
	}
	if _, err := avro.EncodeValue(&w.master, longSchema, avro.LongValue(int64(len(payload)))); err != nil {
		return err
	}
	if _, err := w.master.Write(payload); err != nil {
		return avro.WrapIO("write block payload", err)
	}
	if _, err := w.master.Write(w.sync[:]); err != nil {
		return avro.WrapIO("write block sync", err)
	}

	w.blockCount = 0
	w.block.Reset()
	return nil
}

var longSchema = &avro.SchemaTree{Tag: avro.TagLong}

// TakeDatafile forces a final CommitBlock, returns the bytes assembled so
// far, and resets the writer to a fresh Open state: a new header is written
// immediately using the same schema, codec, and sync marker, so the next
// TakeDatafile call yields another complete, independent OCF stream.
func (w *Writer) TakeDatafile() ([]byte, error) {
	if err := w.CommitBlock(); err != nil {
		return nil, err
	}
	out := make([]byte, w.master.Len())
	copy(out, w.master.Bytes())

	w.master.Reset()
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	return out, nil
}

// AppendTo prepares a Writer whose blocks can be appended to an existing,
// already-finalized OCF file. It parses the header from the start of
// existing, rejects schemaJSON unless its tag and fullname equal the file's
// schema, and returns a Writer that reuses the file's codec, sync marker and
// metadata. opts are applied after those and are not checked against the
// file. The Writer holds no header, so its blocks are meant to follow the
// file's current contents; this package never writes to or seeks the
// destination itself.
func AppendTo(existing io.Reader, schemaJSON string, opts ...WriterOption) (*Writer, error) {
	r, err := NewReader(existing)
	if err != nil {
		return nil, err
	}

	want, err := avro.Parse(schemaJSON)
	if err != nil {
		return nil, err
	}
	if want.Fullname() != r.Schema().Fullname() || want.Tag != r.Schema().Tag {
		return nil, avro.WrapUnexpectedSchema(want.Tag)
	}

	opts = append([]WriterOption{
		WithCodec(r.header.Codec()),
		WithSyncMarker(r.header.Sync),
		WithMetadata(r.header.Meta),
	}, opts...)

	w, err := NewWriter(schemaJSON, opts...)
	if err != nil {
		return nil, err
	}
	// The header was just re-written into a fresh master buffer; since the
	// caller is appending to bytes that already contain a valid header, drop
	// ours so the first TakeDatafile returns only the newly-committed blocks.
	// Like any Writer, TakeDatafile then writes a fresh header, so a later
	// call returns a complete stream that starts with a header.
	w.master.Reset()
	return w, nil
}
