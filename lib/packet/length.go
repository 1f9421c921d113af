package packet

import (
	"errors"
	"fmt"
	"io"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// Length represents the length of a Packet.
// It is encoded as a protobuf base-128 varint in front of the packet data.
type Length uint64

// LengthMaxSize is the maximum number of bytes a Length occupies on the wire.
const LengthMaxSize = 10

// MaxLength is the maximum length of a Packet.
// Larger length prefixes are treated as corrupt.
const MaxLength = 4 << 20

var (
	ErrMalformedLength = errors.New("malformed length prefix")
	ErrTooLarge        = fmt.Errorf("the data may not exceed %v bytes", MaxLength)
)

// TooLargeError is returned by DecodeFrom for a frame above MaxLength.
// The frame was read and dropped, the stream is positioned at the next frame.
type TooLargeError struct {
	Length Length
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("dropped frame of %v bytes: %v", e.Length, ErrTooLarge)
}

func (e *TooLargeError) Is(target error) bool {
	return target == ErrTooLarge
}

// LengthOf creates a Length instance from the passed block of data.
// It returns an error if the length is larger than MaxLength.
func LengthOf(data []byte) (Length, error) {
	if len(data) > MaxLength {
		return 0, ErrTooLarge
	}
	return Length(len(data)), nil
}

// DecodeLength decodes a Length that was encoded with the Length.Bytes method.
// The raw bytes must contain exactly one varint.
// Lengths above MaxLength are returned as they are, the caller decides what to do with the data.
func DecodeLength(raw []byte) (Length, error) {
	v, n := protowire.ConsumeVarint(raw)
	if n < 0 || n != len(raw) || v > math.MaxInt64 {
		return 0, ErrMalformedLength
	}
	return Length(v), nil
}

// Bytes encodes a Length as a varint.
func (l Length) Bytes() []byte {
	return protowire.AppendVarint(make([]byte, 0, protowire.SizeVarint(uint64(l))), uint64(l))
}

// Size returns the number of bytes of the encoded Length.
func (l Length) Size() int {
	return protowire.SizeVarint(uint64(l))
}

// ReadLength reads a varint Length from r one byte at a time,
// so that no byte beyond the prefix is consumed.
// It returns io.EOF only if the stream ended before the first byte.
func ReadLength(r io.Reader) (Length, error) {
	var raw [LengthMaxSize]byte
	for i := 0; i < LengthMaxSize; i++ {
		_, err := io.ReadFull(r, raw[i:i+1])
		if err != nil {
			if i > 0 && err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, err
		}
		if raw[i]&0x80 == 0 {
			return DecodeLength(raw[:i+1])
		}
	}
	return 0, ErrMalformedLength
}
