package avro

import (
	"errors"
	"fmt"
)

// Sentinel errors identifying the taxonomy of failures this package can return.
// Callers should use errors.Is against these rather than comparing strings.
var (
	ErrInvalidSchema    = errors.New("avro: invalid schema")
	ErrNotFound         = errors.New("avro: schema file not found")
	ErrUnexpectedSchema = errors.New("avro: value does not match schema")
	ErrUnexpectedCodec  = errors.New("avro: unrecognised codec")
	ErrEncode           = errors.New("avro: encode error")
	ErrShortRead        = errors.New("avro: short read")
	ErrOverflow         = errors.New("avro: varint overflow")
	ErrInvalidBool      = errors.New("avro: invalid boolean byte")
	ErrChecksumMismatch = errors.New("avro: checksum mismatch")
	ErrSyncMismatch     = errors.New("avro: sync marker mismatch")
	ErrIO               = errors.New("avro: io error")
)

// avroError pairs one of the sentinel kinds above with a human-readable context
// string, so errors.Is/errors.As keep working while the message stays descriptive.
type avroError struct {
	kind    error
	context string
	cause   error
}

func (e *avroError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.kind, e.context, e.cause)
	}
	if e.context == "" {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.kind, e.context)
}

func (e *avroError) Unwrap() error {
	return e.kind
}

func wrapErr(kind error, context string) error {
	return &avroError{kind: kind, context: context}
}

func wrapErrCause(kind error, context string, cause error) error {
	return &avroError{kind: kind, context: context, cause: cause}
}

// The Wrap* functions below let other packages in this module (notably ocf)
// construct errors carrying the same sentinel taxonomy without exporting the
// avroError type itself.

// WrapUnexpectedCodec reports a codec name outside {null, deflate, snappy}.
func WrapUnexpectedCodec(context string) error {
	return wrapErr(ErrUnexpectedCodec, context)
}

// WrapIO reports a failure from an underlying byte sink or source.
func WrapIO(context string, cause error) error {
	return wrapErrCause(ErrIO, context, cause)
}

// WrapShortRead reports an input that ended prematurely.
func WrapShortRead(context string) error {
	return wrapErr(ErrShortRead, context)
}

// WrapChecksumMismatch reports a snappy block whose trailing CRC-32 disagrees
// with the decompressed payload.
func WrapChecksumMismatch(context string) error {
	return wrapErr(ErrChecksumMismatch, context)
}

// WrapSyncMismatch reports a block-trailing sync marker that differs from the
// header's sync marker.
func WrapSyncMismatch(context string) error {
	return wrapErr(ErrSyncMismatch, context)
}

// WrapEncode reports an internal encoding failure with no underlying cause.
func WrapEncode(context string) error {
	return wrapErr(ErrEncode, context)
}

// WrapUnexpectedSchema reports a value whose variant does not match tag,
// per the Writer's acceptance table (§4.6).
func WrapUnexpectedSchema(tag SchemaTag) error {
	return wrapErr(ErrUnexpectedSchema, fmt.Sprintf("value does not match top-level schema tag %s", tag))
}

// WrapInvalidMagic reports a file whose first four bytes are not "Obj\x01".
func WrapInvalidMagic() error {
	return wrapErr(ErrUnexpectedSchema, "not an avro object container file: bad magic bytes")
}
