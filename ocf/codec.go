package ocf

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/flate"

	avro "github.com/ather-data/ravro-go"
)

// codec compresses a block's concatenated encoded objects for writing, and
// reverses that transform on read. Checksum handling (snappy's trailing
// CRC-32) lives inside the codec implementation, not the writer/reader, so
// callers never need to special-case any one codec.
type codec interface {
	name() CodecName
	encode(raw []byte) ([]byte, error)
	decode(payload []byte) ([]byte, error)
}

func resolveCodec(name CodecName) (codec, error) {
	switch name {
	case "", Null:
		return nullCodec{}, nil
	case Deflate:
		return deflateCodec{}, nil
	case Snappy:
		return snappyCodec{}, nil
	default:
		return nil, avro.WrapUnexpectedCodec(string(name))
	}
}

type nullCodec struct{}

func (nullCodec) name() CodecName                       { return Null }
func (nullCodec) encode(raw []byte) ([]byte, error)     { return raw, nil }
func (nullCodec) decode(payload []byte) ([]byte, error) { return payload, nil }

// deflateCodec is RFC-1951 raw deflate (no zlib wrapper), at the stdlib
// default compression level — klauspost/compress/flate is a drop-in,
// allocation-lighter implementation of the same format.
type deflateCodec struct{}

func (deflateCodec) name() CodecName { return Deflate }

func (deflateCodec) encode(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, avro.WrapIO("deflate: open writer", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, avro.WrapIO("deflate: write", err)
	}
	if err := w.Close(); err != nil {
		return nil, avro.WrapIO("deflate: close", err)
	}
	return buf.Bytes(), nil
}

func (deflateCodec) decode(payload []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(payload))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, avro.WrapIO("deflate: read", err)
	}
	return out, nil
}

// snappyCodec is Google "raw" snappy (no block framing), with the writer
// appending — and the reader validating — a trailing 4-byte big-endian
// CRC-32-IEEE checksum of the *uncompressed* payload (§4.5).
type snappyCodec struct{}

func (snappyCodec) name() CodecName { return Snappy }

func (snappyCodec) encode(raw []byte) ([]byte, error) {
	compressed := snappy.Encode(nil, raw)
	sum := crc32.ChecksumIEEE(raw)
	out := make([]byte, len(compressed)+4)
	copy(out, compressed)
	binary.BigEndian.PutUint32(out[len(compressed):], sum)
	return out, nil
}

func (snappyCodec) decode(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, avro.WrapShortRead("snappy payload shorter than its trailing checksum")
	}
	compressed := payload[:len(payload)-4]
	wantSum := binary.BigEndian.Uint32(payload[len(payload)-4:])

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, avro.WrapIO("snappy: decompress", err)
	}
	if gotSum := crc32.ChecksumIEEE(raw); gotSum != wantSum {
		return nil, avro.WrapChecksumMismatch(fmt.Sprintf("snappy block: want %08x, got %08x", wantSum, gotSum))
	}
	return raw, nil
}
