package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"quadpwm/core"
)

// BulkPacketSize is the write granularity of a bulk stream
const BulkPacketSize = 64

// Responder answers single-byte host requests
type Responder struct {
	// Snapshot supplies the engine state for status replies
	Snapshot func() core.Status

	// BulkSize is the number of pattern bytes sent per bulk request
	BulkSize int

	seq    uint8
	frame  []byte
	packet [BulkPacketSize]byte
}

func NewResponder(snapshot func() core.Status, bulkSize int) *Responder {
	r := &Responder{
		Snapshot: snapshot,
		BulkSize: bulkSize &^ 3,
		frame:    make([]byte, 0, MessageLengthMax),
	}
	for i := 0; i < len(r.packet); i += 4 {
		binary.BigEndian.PutUint32(r.packet[i:], BulkPattern)
	}
	return r
}

// Handle writes the reply to req. Unknown requests are ignored.
func (r *Responder) Handle(req byte, w io.Writer) error {
	switch req {
	case RequestStatus:
		return r.sendStatus(w)
	case RequestBulk:
		return r.sendBulk(w)
	}
	core.DebugPrintln("[PROTO] ignoring request 0x" + strconv.FormatUint(uint64(req), 16))
	return nil
}

func (r *Responder) sendStatus(w io.Writer) error {
	var err error
	r.frame, err = AppendStatusFrame(r.frame[:0], r.seq, NewStatusReport(r.Snapshot()))
	if err != nil {
		return err
	}
	r.seq = (r.seq + 1) & MessageSeqMask
	_, err = w.Write(r.frame)
	return err
}

func (r *Responder) sendBulk(w io.Writer) error {
	for sent := 0; sent < r.BulkSize; {
		n := r.BulkSize - sent
		if n > len(r.packet) {
			n = len(r.packet)
		}
		if _, err := w.Write(r.packet[:n]); err != nil {
			return fmt.Errorf("bulk write at %d: %w", sent, err)
		}
		sent += n
	}
	return nil
}
