package decode

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrUnknownKind       = errors.New("decode: unknown value kind")
	ErrUnknownEndianness = errors.New("decode: unknown endianness")
	ErrUnknownWordOrder  = errors.New("decode: unknown word order")
)

// Endianness is the byte order within one 16-bit register.
type Endianness int

const (
	BigEndian Endianness = iota
	LittleEndian
)

// WordOrder is the register order of a multi-word value on the wire.
type WordOrder int

const (
	HighWordFirst WordOrder = iota
	LowWordFirst
)

// ParseEndianness maps a config string to an Endianness.
func ParseEndianness(s string) (Endianness, error) {
	switch s {
	case "", "big":
		return BigEndian, nil
	case "little":
		return LittleEndian, nil
	default:
		return BigEndian, fmt.Errorf("%w: %q", ErrUnknownEndianness, s)
	}
}

// ParseWordOrder maps a config string to a WordOrder.
func ParseWordOrder(s string) (WordOrder, error) {
	switch s {
	case "", "highfirst", "hf":
		return HighWordFirst, nil
	case "lowfirst", "lf":
		return LowWordFirst, nil
	default:
		return HighWordFirst, fmt.Errorf("%w: %q", ErrUnknownWordOrder, s)
	}
}

// Kind names a decodable logical value type.
type Kind string

const (
	KindUint16    Kind = "uint16"
	KindInt16     Kind = "int16"
	KindUint32    Kind = "uint32"
	KindInt32     Kind = "int32"
	KindUint64    Kind = "uint64"
	KindInt64     Kind = "int64"
	KindFloat32     Kind = "float32"
	KindFloat64     Kind = "float64"
	KindTimestamp   Kind = "timestamp"
	KindTimestamp64 Kind = "timestamp64"
)

// ParseKind maps a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindUint16, KindInt16, KindUint32, KindInt32,
		KindUint64, KindInt64, KindFloat32, KindFloat64,
		KindTimestamp, KindTimestamp64:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Width returns the number of consecutive registers the kind occupies.
// Timestamp carries 32-bit epoch seconds, timestamp64 the 64-bit form.
func (k Kind) Width() int {
	switch k {
	case KindUint16, KindInt16:
		return 1
	case KindUint32, KindInt32, KindFloat32, KindTimestamp:
		return 2
	default:
		return 4
	}
}

// normalize returns the words rearranged to high-word-first with big-endian
// bytes in each word, the canonical form the combiners below assume.
func normalize(words []uint16, e Endianness, o WordOrder) []uint16 {
	out := make([]uint16, len(words))
	copy(out, words)
	if o == LowWordFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if e == LittleEndian {
		for i, w := range out {
			out[i] = w>>8 | w<<8
		}
	}
	return out
}

// Uint16 decodes a single register.
func Uint16(words []uint16, e Endianness) uint16 {
	return normalize(words[:1], e, HighWordFirst)[0]
}

// Uint32 decodes two registers.
func Uint32(words []uint16, e Endianness, o WordOrder) uint32 {
	w := normalize(words[:2], e, o)
	return uint32(w[0])<<16 | uint32(w[1])
}

// Uint64 decodes four registers.
func Uint64(words []uint16, e Endianness, o WordOrder) uint64 {
	w := normalize(words[:4], e, o)
	return uint64(w[0])<<48 | uint64(w[1])<<32 | uint64(w[2])<<16 | uint64(w[3])
}

// Float32 decodes two registers holding an IEEE-754 single.
func Float32(words []uint16, e Endianness, o WordOrder) float32 {
	return math.Float32frombits(Uint32(words, e, o))
}

// Float64 decodes four registers holding an IEEE-754 double.
func Float64(words []uint16, e Endianness, o WordOrder) float64 {
	return math.Float64frombits(Uint64(words, e, o))
}
