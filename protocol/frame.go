package protocol

import (
	"errors"
	"io"
)

var (
	ErrFrameTooLong = errors.New("payload does not fit in one frame")
	ErrNoFrame      = errors.New("stream ended before a complete frame")
)

// Frame is one decoded message block
type Frame struct {
	Sequence uint8
	Payload  []byte
}

// AppendFrame appends a framed copy of payload to dst
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := MessageHeaderSize + len(payload) + MessageTrailerSize
	if n > MessageLengthMax {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, byte(n), MessageDest|seq&MessageSeqMask)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), MessageValueSync), nil
}

// FrameReader pulls frames out of a byte stream, discarding anything
// between a corrupt frame and the next sync byte.
type FrameReader struct {
	r      io.Reader
	buf    []byte
	chunk  [MessageLengthMax]byte
	synced bool

	// Dropped counts frames rejected for length, sync or CRC errors
	Dropped int
}

func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, synced: true}
}

// ReadFrame blocks until a valid frame arrives or the reader fails.
// A read error is returned only once the buffered bytes hold no frame.
func (f *FrameReader) ReadFrame() (Frame, error) {
	for {
		if fr, ok := f.next(); ok {
			return fr, nil
		}
		n, err := f.r.Read(f.chunk[:])
		f.buf = append(f.buf, f.chunk[:n]...)
		if err != nil {
			if fr, ok := f.next(); ok {
				return fr, nil
			}
			if errors.Is(err, io.EOF) {
				return Frame{}, ErrNoFrame
			}
			return Frame{}, err
		}
	}
}

func (f *FrameReader) next() (Frame, bool) {
	for len(f.buf) > 0 {
		if !f.synced {
			i := 0
			for i < len(f.buf) && f.buf[i] != MessageValueSync {
				i++
			}
			if i == len(f.buf) {
				f.buf = f.buf[:0]
				return Frame{}, false
			}
			f.buf = f.buf[i+1:]
			f.synced = true
			continue
		}
		if f.buf[0] == MessageValueSync {
			f.buf = f.buf[1:]
			continue
		}
		if len(f.buf) < MessageLengthMin {
			return Frame{}, false
		}

		n := int(f.buf[MessagePositionLen])
		if n < MessageLengthMin || n > MessageLengthMax {
			f.reject()
			continue
		}
		if len(f.buf) < n {
			return Frame{}, false
		}
		if f.buf[n-1] != MessageValueSync || f.buf[MessagePositionSeq]&^MessageSeqMask != MessageDest {
			f.reject()
			continue
		}
		crc := uint16(f.buf[n-3])<<8 | uint16(f.buf[n-2])
		if crc != CRC16(f.buf[:n-MessageTrailerSize]) {
			f.reject()
			continue
		}

		fr := Frame{
			Sequence: f.buf[MessagePositionSeq] & MessageSeqMask,
			Payload:  append([]byte(nil), f.buf[MessageHeaderSize:n-MessageTrailerSize]...),
		}
		f.buf = f.buf[n:]
		return fr, true
	}
	return Frame{}, false
}

func (f *FrameReader) reject() {
	f.Dropped++
	f.synced = false
	f.buf = f.buf[1:]
}
