package decode

import (
	"errors"
	"math"
	"testing"

	"github.com/mfeldt/regbank/internal/testutil/testlog"
)

func TestUint32WordOrders(t *testing.T) {
	testlog.Start(t)
	if got := Uint32([]uint16{0x1234, 0x5678}, BigEndian, HighWordFirst); got != 0x12345678 {
		t.Fatalf("high first: got=%#x", got)
	}
	if got := Uint32([]uint16{0x5678, 0x1234}, BigEndian, LowWordFirst); got != 0x12345678 {
		t.Fatalf("low first: got=%#x", got)
	}
}

func TestLittleEndianSwapsBytesWithinWords(t *testing.T) {
	testlog.Start(t)
	if got := Uint16([]uint16{0x3412}, LittleEndian); got != 0x1234 {
		t.Fatalf("uint16: got=%#x", got)
	}
	if got := Uint32([]uint16{0x3412, 0x7856}, LittleEndian, HighWordFirst); got != 0x12345678 {
		t.Fatalf("uint32: got=%#x", got)
	}
}

func TestUint64AllWords(t *testing.T) {
	testlog.Start(t)
	words := []uint16{0x0123, 0x4567, 0x89AB, 0xCDEF}
	if got := Uint64(words, BigEndian, HighWordFirst); got != 0x0123456789ABCDEF {
		t.Fatalf("high first: got=%#x", got)
	}
	reversed := []uint16{0xCDEF, 0x89AB, 0x4567, 0x0123}
	if got := Uint64(reversed, BigEndian, LowWordFirst); got != 0x0123456789ABCDEF {
		t.Fatalf("low first: got=%#x", got)
	}
}

func TestFloat32Pi(t *testing.T) {
	testlog.Start(t)
	// 0x4048F5C3 is the IEEE-754 single closest to 3.14
	got := Float32([]uint16{0x4048, 0xF5C3}, BigEndian, HighWordFirst)
	if math.Abs(float64(got)-3.14) > 1e-6 {
		t.Fatalf("got=%v want ~3.14", got)
	}
}

func TestFloat64RoundTrip(t *testing.T) {
	testlog.Start(t)
	bits := math.Float64bits(-273.15)
	words := []uint16{
		uint16(bits >> 48),
		uint16(bits >> 32),
		uint16(bits >> 16),
		uint16(bits),
	}
	if got := Float64(words, BigEndian, HighWordFirst); got != -273.15 {
		t.Fatalf("got=%v", got)
	}
}

func TestKindWidths(t *testing.T) {
	testlog.Start(t)
	cases := map[Kind]int{
		KindUint16:      1,
		KindInt16:       1,
		KindUint32:      2,
		KindInt32:       2,
		KindFloat32:     2,
		KindTimestamp:   2,
		KindUint64:      4,
		KindInt64:       4,
		KindFloat64:     4,
		KindTimestamp64: 4,
	}
	for kind, want := range cases {
		if got := kind.Width(); got != want {
			t.Fatalf("width of %s: got=%d want=%d", kind, got, want)
		}
	}
}

func TestParseKindUnknown(t *testing.T) {
	testlog.Start(t)
	if _, err := ParseKind("float16"); !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestParseEndiannessAndWordOrder(t *testing.T) {
	testlog.Start(t)
	if e, err := ParseEndianness(""); err != nil || e != BigEndian {
		t.Fatalf("empty endianness: %v %v", e, err)
	}
	if _, err := ParseEndianness("middle"); !errors.Is(err, ErrUnknownEndianness) {
		t.Fatalf("expected ErrUnknownEndianness, got %v", err)
	}
	if o, err := ParseWordOrder("lf"); err != nil || o != LowWordFirst {
		t.Fatalf("lf word order: %v %v", o, err)
	}
	if _, err := ParseWordOrder("middle"); !errors.Is(err, ErrUnknownWordOrder) {
		t.Fatalf("expected ErrUnknownWordOrder, got %v", err)
	}
}
