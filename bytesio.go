package zipkit

import (
	"encoding/binary"
	"fmt"
	"io"
)

// writeBuf is a little-endian encoder that advances over a fixed-size
// destination slice as each field is written. Kept from the teacher's
// struct.go/writer.go, which used exactly this shape for LFH/CDH/EOCD
// encoding.
type writeBuf []byte

func (b *writeBuf) uint8(v uint8) {
	(*b)[0] = v
	*b = (*b)[1:]
}

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

func (b *writeBuf) uint64(v uint64) {
	binary.LittleEndian.PutUint64(*b, v)
	*b = (*b)[8:]
}

func (b *writeBuf) bytes(v []byte) {
	n := copy(*b, v)
	*b = (*b)[n:]
}

// readBuf is the decode counterpart to writeBuf: it advances over a
// source slice as each field is consumed. Mirrors xenking-zipstream's
// readBuf helper, which the teacher never needed because it never parses
// an existing archive.
type readBuf []byte

func (b *readBuf) uint8() uint8 {
	v := (*b)[0]
	*b = (*b)[1:]
	return v
}

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}

func (b *readBuf) bytes(n int) []byte {
	v := (*b)[:n]
	*b = (*b)[n:]
	return v
}

// readFull reads exactly n bytes from r, reporting ErrFormat (truncated)
// rather than a bare io.ErrUnexpectedEOF when the stream runs dry early.
func readFull(r io.Reader, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: truncated while reading %d bytes: %v", ErrFormat, n, err)
	}
	return buf, nil
}

// readAtFull is the io.ReaderAt counterpart of readFull, used by the
// central-directory and local-header readers which work off a section
// of a random-access source rather than a sequential stream.
func readAtFull(r io.ReaderAt, off int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(io.NewSectionReader(r, off, int64(n)), buf); err != nil {
		return nil, fmt.Errorf("%w: truncated at offset %d: %v", ErrFormat, off, err)
	}
	return buf, nil
}
