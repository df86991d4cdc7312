package ocf

import (
	"errors"
	"io"

	avro "github.com/ather-data/ravro-go"

	"github.com/ather-data/ravro-go/internal/bytesx"
	"github.com/ather-data/ravro-go/internal/xlog"
)

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*readerConfig)

type readerConfig struct {
	strict bool
	logger *xlog.Logger
}

// WithStrict makes a sync-marker mismatch between blocks a fatal error
// (ErrSyncMismatch) instead of a logged warning (§4.7, §7).
func WithStrict(strict bool) ReaderOption {
	return func(c *readerConfig) { c.strict = strict }
}

// WithLogger sets the sink for non-fatal diagnostics such as a sync-marker
// mismatch. The default Reader logs to slog's default handler.
func WithLogger(l *xlog.Logger) ReaderOption {
	return func(c *readerConfig) { c.logger = l }
}

// Reader parses an OCF header once at construction and then exposes a
// HasNext/Next iterator that transparently spans block boundaries and
// per-block decompression (§4.7). It exclusively owns the underlying byte
// source and a reusable decompressed-block scratch buffer.
type Reader struct {
	src    io.Reader
	header Header
	schema *avro.SchemaTree
	codec  codec

	cfg readerConfig

	block     *bytesx.ResetReader
	remaining int64
	err       error
}

// NewReader parses the header from r and prepares to iterate its values.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	cfg := readerConfig{logger: xlog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, avro.WrapIO("read magic", err)
	}
	if magic != magicBytes {
		return nil, avro.WrapInvalidMagic()
	}

	metaVal, err := avro.DecodeValue(r, metaValueSchema)
	if err != nil {
		return nil, err
	}
	metaEntries, err := avro.AsMap(metaVal)
	if err != nil {
		return nil, err
	}
	meta := make(map[string][]byte, len(metaEntries))
	for _, e := range metaEntries {
		b, err := avro.AsBytes(e.V)
		if err != nil {
			return nil, err
		}
		meta[e.Key] = b
	}

	var sync [16]byte
	if _, err := io.ReadFull(r, sync[:]); err != nil {
		return nil, avro.WrapIO("read sync", err)
	}

	header := Header{Magic: magic, Meta: meta, Sync: sync}
	schema, err := header.Schema()
	if err != nil {
		return nil, err
	}
	c, err := resolveCodec(header.Codec())
	if err != nil {
		return nil, err
	}

	return &Reader{
		src:    r,
		header: header,
		schema: schema,
		codec:  c,
		cfg:    cfg,
		block:  bytesx.NewResetReader(nil),
	}, nil
}

// Schema returns the schema recovered from the header's avro.schema entry.
func (r *Reader) Schema() *avro.SchemaTree {
	return r.schema
}

// Metadata returns every header metadata entry, including avro.schema and
// avro.codec.
func (r *Reader) Metadata() map[string][]byte {
	return r.header.Meta
}

// Error returns the error that terminated iteration, or nil if the stream
// ended cleanly or has not been read to exhaustion yet.
func (r *Reader) Error() error {
	if errors.Is(r.err, io.EOF) {
		return nil
	}
	return r.err
}

// HasNext reports whether another value is available, reading and
// decompressing the next block when the current one is exhausted.
func (r *Reader) HasNext() bool {
	if r.err != nil {
		return false
	}
	if r.remaining <= 0 {
		r.remaining = r.readBlock()
	}
	return r.err == nil && r.remaining > 0
}

// Next decodes and returns the next value. Call HasNext first; Next on an
// exhausted reader returns the last iteration error (typically io.EOF).
func (r *Reader) Next() (avro.Value, error) {
	if r.remaining <= 0 {
		if r.err != nil {
			return nil, r.err
		}
		return nil, avro.WrapShortRead("Next called with no data available, call HasNext first")
	}
	v, err := avro.DecodeValue(r.block, r.schema)
	if err != nil {
		r.err = err
		return nil, err
	}
	r.remaining--
	return v, nil
}

// readBlock reads one block header block-count/size, the (possibly
// compressed) payload, and the trailing sync marker, leaving the decoded
// object count in the return value. A clean EOF while reading the block
// count is not an error: it ends iteration.
func (r *Reader) readBlock() int64 {
	count, err := avro.DecodeValue(r.src, longSchema)
	if err != nil {
		if errors.Is(err, avro.ErrShortRead) {
			r.err = io.EOF
		} else {
			r.err = err
		}
		return 0
	}
	n := int64(avro.MustLong(count))
	if n <= 0 {
		r.err = io.EOF
		return 0
	}

	sizeVal, err := avro.DecodeValue(r.src, longSchema)
	if err != nil {
		r.err = err
		return 0
	}
	size := avro.MustLong(sizeVal)
	if size < 0 {
		r.err = avro.WrapShortRead("negative block payload size")
		return 0
	}

	payload := make([]byte, size)
	if size > 0 {
		if _, err := io.ReadFull(r.src, payload); err != nil {
			r.err = avro.WrapIO("read block payload", err)
			return 0
		}
	}

	raw, err := r.codec.decode(payload)
	if err != nil {
		r.err = err
		return 0
	}
	r.block.Reset(raw)

	var sync [16]byte
	if _, err := io.ReadFull(r.src, sync[:]); err != nil {
		r.err = avro.WrapIO("read block sync", err)
		return 0
	}
	if sync != r.header.Sync {
		mismatch := avro.WrapSyncMismatch("block sync marker does not match header sync marker")
		if r.cfg.strict {
			r.err = mismatch
			return 0
		}
		if r.cfg.logger != nil {
			r.cfg.logger.Warn("ocf: sync marker mismatch", "err", mismatch)
		}
	}

	return n
}
