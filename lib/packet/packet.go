package packet

import (
	"io"
)

// Packet is the body of one length-delimited frame.
type Packet []byte

// New constructs a new Packet from a sequence of bytes.
func New(data []byte) Packet {
	return data
}

// Bytes returns the encoded frame: the length prefix followed by the data.
func (p Packet) Bytes() ([]byte, error) {
	length, err := LengthOf(p)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, length.Size()+len(p))
	out = append(out, length.Bytes()...)
	return append(out, p...), nil
}

// WriteTo writes the frame to an io.Writer with a single Write call,
// so that a frame is never split between two writes of the caller.
func (p Packet) WriteTo(w io.Writer) (n int64, err error) {
	data, err := p.Bytes()
	if err != nil {
		return
	}
	m, err := w.Write(data)
	n = int64(m)
	return
}

// DecodeFrom reads and decodes a whole Packet from an io.Reader and returns it.
// It blocks until a complete frame is available.
// io.EOF is returned only when the stream ends at a frame boundary,
// a stream that ends within a frame yields io.ErrUnexpectedEOF.
// A frame above MaxLength is skipped without buffering it and reported as *TooLargeError,
// after which the next frame can be read.
func DecodeFrom(r io.Reader) (packet Packet, err error) {
	length, err := ReadLength(r)
	if err != nil {
		return
	}
	if length > MaxLength {
		_, err = io.CopyN(io.Discard, r, int64(length))
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		if err == nil {
			err = &TooLargeError{Length: length}
		}
		return
	}
	packet = make([]byte, length)
	_, err = io.ReadFull(r, packet)
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	if err != nil {
		packet = nil
	}
	return
}

// Size returns the number of raw bytes that would encode this packet.
func (p Packet) Size() int64 {
	return int64(Length(len(p)).Size() + len(p))
}
