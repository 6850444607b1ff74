package minitable

import (
	"bytes"
	"fmt"
	"strings"
)

const (
	IDSize       = 4
	UsernameSize = 32
	EmailSize    = 255

	IDOffset       = 0
	UsernameOffset = IDOffset + IDSize
	EmailOffset    = UsernameOffset + UsernameSize

	// RowSize is the fixed width of a serialized row
	RowSize = IDSize + UsernameSize + EmailSize
)

// Row is the only record type stored in a table. Username and email are
// stored in fixed width fields, padded with zero bytes.
type Row struct {
	ID       uint32
	Username string
	Email    string
}

func (r Row) Size() uint64 {
	return RowSize
}

// Marshal writes the row into buf at fixed offsets. A string that fills its
// field exactly is stored without a terminating zero byte.
func (r Row) Marshal(buf []byte) ([]byte, error) {
	size := r.Size()
	if uint64(cap(buf)) >= size {
		buf = buf[:size]
	} else {
		buf = make([]byte, size)
	}

	if len(r.Username) > UsernameSize {
		return nil, fmt.Errorf("username length %d exceeds %d bytes", len(r.Username), UsernameSize)
	}
	if len(r.Email) > EmailSize {
		return nil, fmt.Errorf("email length %d exceeds %d bytes", len(r.Email), EmailSize)
	}
	// A zero byte would end the field early when read back
	if strings.IndexByte(r.Username, 0) >= 0 {
		return nil, fmt.Errorf("%w: username", ErrZeroByte)
	}
	if strings.IndexByte(r.Email, 0) >= 0 {
		return nil, fmt.Errorf("%w: email", ErrZeroByte)
	}

	marshalUint32(buf, r.ID, IDOffset)
	putFixedString(buf[UsernameOffset:UsernameOffset+UsernameSize], r.Username)
	putFixedString(buf[EmailOffset:EmailOffset+EmailSize], r.Email)

	return buf, nil
}

// UnmarshalRow reads a row back using declared field widths, it never scans
// past a field boundary looking for a terminator.
func UnmarshalRow(buf []byte, aRow *Row) error {
	if uint64(len(buf)) < RowSize {
		return fmt.Errorf("row buffer too short: %d < %d", len(buf), RowSize)
	}

	aRow.ID = unmarshalUint32(buf, IDOffset)
	aRow.Username = fixedString(buf[UsernameOffset : UsernameOffset+UsernameSize])
	aRow.Email = fixedString(buf[EmailOffset : EmailOffset+EmailSize])

	return nil
}

func (r Row) String() string {
	return fmt.Sprintf("(%d, %s, %s)", r.ID, r.Username, r.Email)
}

func putFixedString(field []byte, value string) {
	n := copy(field, value)
	for i := n; i < len(field); i++ {
		field[i] = 0
	}
}

func fixedString(field []byte) string {
	if idx := bytes.IndexByte(field, 0); idx >= 0 {
		return string(field[:idx])
	}
	return string(field)
}

func marshalUint32(buf []byte, n uint32, i uint64) []byte {
	buf[i+0] = byte(n >> 0)
	buf[i+1] = byte(n >> 8)
	buf[i+2] = byte(n >> 16)
	buf[i+3] = byte(n >> 24)
	return buf
}

func unmarshalUint32(buf []byte, i uint64) uint32 {
	return 0 |
		(uint32(buf[i+0]) << 0) |
		(uint32(buf[i+1]) << 8) |
		(uint32(buf[i+2]) << 16) |
		(uint32(buf[i+3]) << 24)
}
