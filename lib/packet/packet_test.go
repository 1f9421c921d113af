package packet

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var data1 = []byte("golden")
var data2 = []byte("gate")

func TestPacket_WriteTo(t *testing.T) {
	l, err := LengthOf(data1)
	assert.Nil(t, err)
	var b bytes.Buffer
	p := New(data1)
	n, err := p.WriteTo(&b)
	assert.Nil(t, err)
	assert.EqualValues(t, len(data1)+l.Size(), n)
	assert.EqualValues(t, p.Size(), n)
	assert.EqualValues(t, l.Bytes(), b.Bytes()[:l.Size()])
	assert.EqualValues(t, data1, b.Bytes()[l.Size():])
}

func writePackets(t *testing.T, w io.Writer, packets ...[]byte) {
	for _, p := range packets {
		_, err := New(p).WriteTo(w)
		require.Nil(t, err)
	}
}

func TestDecodeFrom_Consecutive(t *testing.T) {
	var b bytes.Buffer
	writePackets(t, &b, data1, data2)
	p1, err := DecodeFrom(&b)
	assert.Nil(t, err)
	assert.EqualValues(t, data1, p1)
	p2, err := DecodeFrom(&b)
	assert.Nil(t, err)
	assert.EqualValues(t, data2, p2)
	_, err = DecodeFrom(&b)
	assert.Equal(t, io.EOF, err)
}

func TestDecodeFrom(t *testing.T) {
	var b bytes.Buffer
	_, err := New(data1).WriteTo(&b)
	assert.Nil(t, err)
	data, err := DecodeFrom(&b)
	assert.Nil(t, err)
	assert.EqualValues(t, data1, data)
}

func TestDecodeFrom_Empty(t *testing.T) {
	var b bytes.Buffer
	_, err := New(nil).WriteTo(&b)
	require.Nil(t, err)
	assert.Equal(t, []byte{0}, b.Bytes())
	data, err := DecodeFrom(&b)
	assert.Nil(t, err)
	assert.Len(t, data, 0)
}

func TestDecodeFrom_OneByteReads(t *testing.T) {
	large := bytes.Repeat([]byte("x"), 1000)
	var b bytes.Buffer
	writePackets(t, &b, data1, large, data2)
	r := iotest.OneByteReader(&b)
	for _, expected := range [][]byte{data1, large, data2} {
		data, err := DecodeFrom(r)
		require.Nil(t, err)
		assert.EqualValues(t, expected, data)
	}
	_, err := DecodeFrom(r)
	assert.Equal(t, io.EOF, err)
}

func TestDecodeFrom_Truncated(t *testing.T) {
	raw, err := New(data1).Bytes()
	require.Nil(t, err)
	_, err = DecodeFrom(bytes.NewReader(raw[:3]))
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func writeOversized(b *bytes.Buffer) {
	b.Write(Length(MaxLength + 1).Bytes())
	b.Write(make([]byte, MaxLength+1))
}

func TestDecodeFrom_TooLargeIsSkipped(t *testing.T) {
	var b bytes.Buffer
	writeOversized(&b)
	writePackets(t, &b, data1)

	_, err := DecodeFrom(&b)
	assert.ErrorIs(t, err, ErrTooLarge)
	var tooLarge *TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.EqualValues(t, MaxLength+1, tooLarge.Length)

	data, err := DecodeFrom(&b)
	require.Nil(t, err)
	assert.EqualValues(t, data1, data)
}

func TestDecodeFrom_TooLargeTruncated(t *testing.T) {
	var b bytes.Buffer
	b.Write(Length(MaxLength + 1).Bytes())
	b.Write(data1)
	_, err := DecodeFrom(&b)
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}
