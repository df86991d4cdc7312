package avro

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVarintRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		n    int64
		long int
	}{
		{"zero", 0, 1},
		{"one", 1, 1},
		{"neg-one", -1, 1},
		{"63", 63, 1},
		{"neg-63", -63, 1},
		{"64", 64, 2},
		{"neg-64", -64, 1},
		{"8192", 8192, 3},
		{"neg-8192", -8192, 2},
		{"i32-min", math.MinInt32, 5},
		{"i32-max", math.MaxInt32, 5},
		{"i64-min", math.MinInt64, 10},
		{"i64-max", math.MaxInt64, 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := encodeLong(&buf, tc.n)
			require.NoError(t, err)
			assert.Equal(t, tc.long, n)
			assert.Equal(t, tc.long, buf.Len())

			got, err := decodeLong(&buf)
			require.NoError(t, err)
			assert.Equal(t, tc.n, got)
		})
	}
}

func TestVarintByteLengthTable(t *testing.T) {
	cases := []struct {
		n      int64
		nbytes int
	}{
		{0, 1},
		{3, 1},
		{128, 2},
		{130, 2},
		{944261, 3},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		_, err := encodeLong(&buf, tc.n)
		require.NoError(t, err)
		assert.Equal(t, tc.nbytes, buf.Len(), "n=%d", tc.n)
	}
}

func TestZigZagMapping(t *testing.T) {
	cases := []struct {
		n    int64
		want uint64
	}{
		{-1, 1},
		{-3, 5},
		{3, 6},
		{-50, 99},
		{50, 100},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, zigzag64(tc.n), "zigzag64(%d)", tc.n)
		assert.Equal(t, tc.n, unzigzag64(tc.want), "unzigzag64(%d)", tc.want)
	}
}

func TestDecodeVarintOverflow(t *testing.T) {
	// Ten continuation bytes with the high bit still set on the tenth is
	// malformed: no terminator within the 10-byte budget.
	malformed := bytes.Repeat([]byte{0xFF}, 10)
	_, err := decodeVarint(bytes.NewReader(malformed))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestDecodeVarintShortRead(t *testing.T) {
	_, err := decodeVarint(bytes.NewReader([]byte{0x80}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestPrimitiveRoundTrip(t *testing.T) {
	t.Run("bool", func(t *testing.T) {
		for _, b := range []bool{true, false} {
			var buf bytes.Buffer
			n, err := encodeBool(&buf, b)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
			got, err := decodeBool(&buf)
			require.NoError(t, err)
			assert.Equal(t, b, got)
		}
	})

	t.Run("invalid-bool-byte", func(t *testing.T) {
		_, err := decodeBool(bytes.NewReader([]byte{0x02}))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidBool)
	})

	t.Run("float", func(t *testing.T) {
		for _, f := range []float32{0, 1, -1, 3.14, math.MaxFloat32, -math.MaxFloat32} {
			var buf bytes.Buffer
			_, err := encodeFloat(&buf, f)
			require.NoError(t, err)
			got, err := decodeFloat(&buf)
			require.NoError(t, err)
			assert.Equal(t, f, got)
		}
	})

	t.Run("double", func(t *testing.T) {
		for _, f := range []float64{0, 1, -1, 3675465665544.32533444, math.MaxFloat64} {
			var buf bytes.Buffer
			_, err := encodeDouble(&buf, f)
			require.NoError(t, err)
			got, err := decodeDouble(&buf)
			require.NoError(t, err)
			assert.Equal(t, f, got)
		}
	})

	t.Run("bytes", func(t *testing.T) {
		for _, b := range [][]byte{nil, {}, []byte("ravro"), bytes.Repeat([]byte{0xAB}, 300)} {
			var buf bytes.Buffer
			_, err := encodeBytes(&buf, b)
			require.NoError(t, err)
			got, err := decodeBytes(&buf)
			require.NoError(t, err)
			assert.Equal(t, b, got)
		}
	})

	t.Run("string-byte-length-not-rune-count", func(t *testing.T) {
		s := "héllo" // 5 runes, 6 UTF-8 bytes
		var buf bytes.Buffer
		n, err := encodeString(&buf, s)
		require.NoError(t, err)
		assert.Equal(t, 1+len(s), n) // 1-byte length prefix + 6 payload bytes
		got, err := decodeString(&buf)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	})
}

func TestDecodeBytesRejectsNegativeLength(t *testing.T) {
	var buf bytes.Buffer
	_, err := encodeLong(&buf, -1)
	require.NoError(t, err)
	_, err = decodeBytes(&buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrShortRead)
}
