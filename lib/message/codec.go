package message

import (
	"errors"
	"io"

	"projekt/control/lib/packet"
)

// Encode marshals a Message into a length-delimited packet.
func Encode(m Message) (packet.Packet, error) {
	data, err := Marshal(m)
	if err != nil {
		return nil, err
	}
	if _, err = packet.LengthOf(data); err != nil {
		return nil, err
	}
	return packet.New(data), nil
}

// Decoder reads one Message per frame from a stream.
type Decoder struct {
	r         io.Reader
	direction Direction
}

// NewDecoder creates a Decoder for messages of the given Direction.
func NewDecoder(r io.Reader, direction Direction) *Decoder {
	return &Decoder{r: r, direction: direction}
}

// Decode blocks until one complete frame was read.
// It returns io.EOF if the stream ended at a frame boundary
// and a *DecodeError if the frame content is not a valid message
// or the frame was dropped for exceeding packet.MaxLength.
// Any other error comes from the stream or from a corrupt length prefix;
// the stream cannot be read any further in that case.
func (d *Decoder) Decode() (Message, error) {
	p, err := packet.DecodeFrom(d.r)
	var tooLarge *packet.TooLargeError
	if errors.As(err, &tooLarge) {
		return nil, &DecodeError{Size: int(tooLarge.Length), Err: err}
	}
	if err != nil {
		return nil, err
	}
	m, err := Unmarshal(d.direction, p)
	if err != nil {
		return nil, &DecodeError{Size: len(p), Err: err}
	}
	return m, nil
}
