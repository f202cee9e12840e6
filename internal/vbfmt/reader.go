package vbfmt

import (
	"encoding/binary"
	"errors"
	"math"
	"unicode/utf16"
)

// ErrOutOfRange is returned by every Reader method when the requested
// span does not fit within the remaining buffer. It is never a panic.
var ErrOutOfRange = errors.New("vbfmt: read out of range")

// Reader is a bounds-checked little-endian cursor over a byte buffer.
// It is the ByteReader described by the decompilation pipeline: every
// decoder (PE headers, VB metadata, P-Code, x86) is built on top of one.
type Reader struct {
	data []byte
	pos  int
}

// NewReader creates a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// NewReaderAt creates a Reader positioned at offset within data. The
// offset is clamped to len(data) rather than rejected, matching the
// teacher's NewStreamAt.
func NewReaderAt(data []byte, offset int) *Reader {
	if offset < 0 {
		offset = 0
	}
	if offset > len(data) {
		offset = len(data)
	}
	return &Reader{data: data, pos: offset}
}

// Pos returns the current cursor position.
func (r *Reader) Pos() int { return r.pos }

// Len returns the total length of the underlying buffer.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

// Seek moves the cursor to an absolute offset.
func (r *Reader) Seek(offset int) error {
	if offset < 0 || offset > len(r.data) {
		return ErrOutOfRange
	}
	r.pos = offset
	return nil
}

// Skip advances the cursor by n bytes without reading them.
func (r *Reader) Skip(n int) error {
	if n < 0 || r.pos+n > len(r.data) || r.pos+n < 0 {
		return ErrOutOfRange
	}
	r.pos += n
	return nil
}

// Peek returns the next n bytes without advancing the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, ErrOutOfRange
	}
	return r.data[r.pos : r.pos+n], nil
}

// ReadAt reads n bytes starting at an absolute offset, leaving the
// cursor untouched.
func (r *Reader) ReadAt(offset, n int) ([]byte, error) {
	if offset < 0 || n < 0 || offset+n > len(r.data) {
		return nil, ErrOutOfRange
	}
	out := make([]byte, n)
	copy(out, r.data[offset:offset+n])
	return out, nil
}

// ReadBytes reads n bytes and advances the cursor by exactly n.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, ErrOutOfRange
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out, nil
}

// ReadU8 reads one unsigned byte.
func (r *Reader) ReadU8() (uint8, error) {
	if r.pos+1 > len(r.data) {
		return 0, ErrOutOfRange
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// ReadI8 reads one signed byte.
func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

// ReadU16LE reads a little-endian uint16.
func (r *Reader) ReadU16LE() (uint16, error) {
	if r.pos+2 > len(r.data) {
		return 0, ErrOutOfRange
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadI16LE reads a little-endian int16.
func (r *Reader) ReadI16LE() (int16, error) {
	v, err := r.ReadU16LE()
	return int16(v), err
}

// ReadU32LE reads a little-endian uint32.
func (r *Reader) ReadU32LE() (uint32, error) {
	if r.pos+4 > len(r.data) {
		return 0, ErrOutOfRange
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadI32LE reads a little-endian int32.
func (r *Reader) ReadI32LE() (int32, error) {
	v, err := r.ReadU32LE()
	return int32(v), err
}

// ReadU64LE reads a little-endian uint64.
func (r *Reader) ReadU64LE() (uint64, error) {
	if r.pos+8 > len(r.data) {
		return 0, ErrOutOfRange
	}
	v := binary.LittleEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadF32LE reads a little-endian IEEE-754 single-precision float.
func (r *Reader) ReadF32LE() (float32, error) {
	v, err := r.ReadU32LE()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// ReadF64LE reads a little-endian IEEE-754 double-precision float.
func (r *Reader) ReadF64LE() (float64, error) {
	v, err := r.ReadU64LE()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadCString reads a NUL-terminated ASCII string, never scanning past
// max bytes from the cursor. max <= 0 means "scan to end of buffer".
func (r *Reader) ReadCString(max int) (string, error) {
	limit := len(r.data)
	if max > 0 && r.pos+max < limit {
		limit = r.pos + max
	}
	start := r.pos
	i := start
	for i < limit {
		if r.data[i] == 0 {
			s := string(r.data[start:i])
			r.pos = i + 1
			return s, nil
		}
		i++
	}
	return "", ErrOutOfRange
}

// ReadUTF16NulTerminated reads a UTF-16LE string terminated by a single
// NUL code unit (0x0000), converting to UTF-8. Code points outside the
// basic multilingual plane may be replaced by U+FFFD; strings are for
// display only.
func (r *Reader) ReadUTF16NulTerminated() (string, error) {
	start := r.pos
	i := start
	units := make([]uint16, 0, 16)
	for {
		if i+2 > len(r.data) {
			return "", ErrOutOfRange
		}
		u := binary.LittleEndian.Uint16(r.data[i:])
		i += 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	r.pos = i
	return string(utf16.Decode(units)), nil
}
