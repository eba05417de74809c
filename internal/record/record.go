package record

import (
	"errors"
	"fmt"
)

var (
	ErrStringTooLong = errors.New("string is too long")
	errBufferSize    = errors.New("buffer size does not match record size")
)

// Codec converts records of type R to and from the fixed size value slot
// of a leaf cell.
type Codec[R any] interface {
	Size() uint32
	Marshal(R, []byte) error
	Unmarshal([]byte) (R, error)
}

// BytesCodec stores raw byte values padded with zeros to a fixed size.
type BytesCodec struct {
	size uint32
}

func NewBytesCodec(size uint32) BytesCodec {
	return BytesCodec{size: size}
}

func (c BytesCodec) Size() uint32 {
	return c.size
}

func (c BytesCodec) Marshal(value []byte, buf []byte) error {
	if err := checkBuffer(buf, c.size); err != nil {
		return err
	}
	if uint32(len(value)) > c.size {
		return fmt.Errorf("%w: value is %d bytes, max %d", ErrStringTooLong, len(value), c.size)
	}
	clear(buf[copy(buf, value):])
	return nil
}

// Unmarshal returns a copy of the whole slot, padding included.
func (c BytesCodec) Unmarshal(buf []byte) ([]byte, error) {
	if err := checkBuffer(buf, c.size); err != nil {
		return nil, err
	}
	return append([]byte(nil), buf...), nil
}

func checkBuffer(buf []byte, size uint32) error {
	if uint32(len(buf)) != size {
		return fmt.Errorf("%w: buffer %d bytes, record %d bytes", errBufferSize, len(buf), size)
	}
	return nil
}
