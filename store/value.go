package store

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

type valueFlags uint64

const (
	vfVerBit0 = valueFlags(1 << iota)
	vfVerBit1
	vfVerBit2
	vfVerBit3

	vfVerMask       = (vfVerBit0 | vfVerBit1 | vfVerBit2 | vfVerBit3)
	vfVer1          = vfVerBit0
	vfSupportedMask = vfVer1
	vfDefault       = vfVer1

	checksumSize   = 8
	minValueSize   = 3 + checksumSize
	maxHeaderSize  = binary.MaxVarintLen64*3 + checksumSize
	maxStoredValue = 16 * 1024 * 1024
)

func (vf valueFlags) ver() valueFlags {
	return vf & vfVerMask
}

// Meta describes a stored document.
type Meta struct {
	// ModCount is 1 after Insert and grows by one with every flush.
	ModCount uint64
	Size     int
}

// value is a stored document: a uvarint header (flags, mod count, data size),
// an xxhash64 checksum of the data, then the BSON bytes.
type value struct {
	Flags    valueFlags
	ModCount uint64
	Sum      uint64
	Data     []byte
}

func (vle value) Meta() Meta {
	return Meta{ModCount: vle.ModCount, Size: len(vle.Data)}
}

func encodeValue(modCount uint64, data []byte) []byte {
	buf := make([]byte, 0, maxHeaderSize+len(data))
	buf = binary.AppendUvarint(buf, uint64(vfDefault))
	buf = binary.AppendUvarint(buf, modCount)
	buf = binary.AppendUvarint(buf, uint64(len(data)))
	buf = binary.LittleEndian.AppendUint64(buf, xxhash.Sum64(data))
	return append(buf, data...)
}

func (vle *value) decode(raw []byte) error {
	data := raw
	off := func() int { return len(raw) - len(data) }
	if len(data) < minValueSize {
		return dataErrf(raw, 0, nil, "invalid value: at least %d bytes required", minValueSize)
	}

	v, n := binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(raw, off(), nil, "invalid value: bad flags")
	}
	if (v & ^uint64(vfSupportedMask)) != 0 {
		return dataErrf(raw, off(), nil, "invalid value: unsupported flags %x", v)
	}
	vle.Flags, data = valueFlags(v), data[n:]

	v, n = binary.Uvarint(data)
	if n <= 0 {
		return dataErrf(raw, off(), nil, "invalid value: bad mod count")
	}
	vle.ModCount, data = v, data[n:]

	size, n := binary.Uvarint(data)
	if n <= 0 || size > maxStoredValue {
		return dataErrf(raw, off(), nil, "invalid value: bad data size")
	}
	data = data[n:]

	if len(data) < checksumSize {
		return dataErrf(raw, off(), nil, "invalid value: missing checksum")
	}
	vle.Sum, data = binary.LittleEndian.Uint64(data), data[checksumSize:]

	if uint64(len(data)) != size {
		return dataErrf(raw, off(), nil, "invalid value: got %d bytes of data, expected %d bytes", len(data), size)
	}
	if sum := xxhash.Sum64(data); sum != vle.Sum {
		return dataErrf(raw, off(), nil, "invalid value: checksum %016x, expected %016x", sum, vle.Sum)
	}
	vle.Data = data
	return nil
}
