package protocol

import "errors"

var ErrTruncated = errors.New("truncated VLQ value")

// EncodeVLQInt writes v most-significant group first, 7 bits per byte.
// Values in [-32, 96) take a single byte.
func EncodeVLQInt(out OutputBuffer, v int32) {
	for _, bound := range [...]uint{26, 19, 12, 5} {
		if v < -(1<<bound) || v >= 3<<bound {
			out.Output([]byte{byte(v>>(bound+2))&0x7F | 0x80})
		}
	}
	out.Output([]byte{byte(v & 0x7F)})
}

// EncodeVLQUint writes v using the signed encoding, so values above
// 1<<31 cost five bytes
func EncodeVLQUint(out OutputBuffer, v uint32) {
	EncodeVLQInt(out, int32(v))
}

// DecodeVLQInt reads one value and advances data past it
func DecodeVLQInt(data *[]byte) (int32, error) {
	if len(*data) == 0 {
		return 0, ErrTruncated
	}
	c := uint32((*data)[0])
	*data = (*data)[1:]

	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	for c&0x80 != 0 {
		if len(*data) == 0 {
			return 0, ErrTruncated
		}
		c = uint32((*data)[0])
		*data = (*data)[1:]
		v = v<<7 | c&0x7F
	}
	return int32(v), nil
}

func DecodeVLQUint(data *[]byte) (uint32, error) {
	v, err := DecodeVLQInt(data)
	return uint32(v), err
}
