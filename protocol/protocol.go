// Package protocol frames the status and bulk traffic between the
// quadpwm firmware and the host tool. Frames use the Klipper block layout:
// length, sequence, VLQ payload, CRC16, sync byte.
package protocol

// Version is the firmware/host protocol version
const Version = "0.1.0"

// Frame layout
const (
	MessageHeaderSize  = 2 // length, sequence
	MessageTrailerSize = 3 // crc hi, crc lo, sync
	MessageLengthMin   = MessageHeaderSize + MessageTrailerSize
	MessageLengthMax   = 64
	MessagePositionLen = 0
	MessagePositionSeq = 1
	MessageValueSync   = 0x7E
	MessageDest        = 0x10
	MessageSeqMask     = 0x0F
)

// Single-byte requests sent by the host
const (
	RequestStatus = 's'
	RequestBulk   = 'b'
)

// Message IDs carried as the first VLQ of a payload
const (
	MsgStatus = 1
)

// BulkPattern is the word repeated in a bulk stream, sent big-endian
const BulkPattern = 0xDEADBEEF
