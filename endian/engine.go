// Package endian provides the byte order used to read and write wire records.
//
// Every format handled by evraw stores its records little-endian, regardless of
// the host. Codecs take an EndianEngine instead of hard-coding
// binary.LittleEndian so the record packing code can use both the ByteOrder
// and AppendByteOrder halves of encoding/binary through one value:
//
//	engine := endian.Wire()
//	word := engine.Uint32(rec)            // decode
//	dst = engine.AppendUint32(dst, word)  // encode
//
// All functions in this package are safe for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
//
// binary.LittleEndian and binary.BigEndian both satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Wire returns the engine matching the on-disk byte order of DAT, EVT2 and EVT3.
func Wire() EndianEngine {
	return binary.LittleEndian
}
