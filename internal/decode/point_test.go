package decode

import (
	"math"
	"testing"
	"time"

	"github.com/mfeldt/regbank/internal/binding"
	"github.com/mfeldt/regbank/internal/points"
	"github.com/mfeldt/regbank/internal/testutil/testlog"
)

func TestPointConsumerDecodesFloatThroughDispatch(t *testing.T) {
	testlog.Start(t)
	st := points.NewStore()
	reg := binding.NewRegistry()

	c := NewPointConsumer("boiler.temp", KindFloat32, BigEndian, HighWordFirst, st)
	if err := reg.Register(100, KindFloat32.Width(), c); err != nil {
		t.Fatalf("register: %v", err)
	}

	res := binding.Dispatch(reg, 100, []uint16{0x4048, 0xF5C3})
	if res.Dispatched != 1 {
		t.Fatalf("dispatch result: %+v", res)
	}

	v, ok := st.Get("boiler.temp")
	if !ok {
		t.Fatalf("point not published")
	}
	if math.Abs(v.Num-3.14) > 1e-6 {
		t.Fatalf("decoded value: got=%v want ~3.14", v.Num)
	}
	if v.Kind != string(KindFloat32) {
		t.Fatalf("kind: %q", v.Kind)
	}
	if v.Updated.IsZero() {
		t.Fatalf("updated timestamp not stamped")
	}
}

func TestPointConsumerTimestamp(t *testing.T) {
	testlog.Start(t)
	st := points.NewStore()

	when := time.Date(2024, 7, 1, 12, 30, 0, 0, time.UTC)
	secs := uint32(when.Unix())
	words := []uint16{uint16(secs >> 16), uint16(secs)}

	c := NewPointConsumer("plant.clock", KindTimestamp, BigEndian, HighWordFirst, st)
	c.Consume(words)

	v, ok := st.Get("plant.clock")
	if !ok {
		t.Fatalf("point not published")
	}
	if v.Text != when.Format(time.RFC3339) {
		t.Fatalf("timestamp text: got=%q want=%q", v.Text, when.Format(time.RFC3339))
	}
}

func TestPointConsumerTimestamp64ThroughDispatch(t *testing.T) {
	testlog.Start(t)
	st := points.NewStore()
	reg := binding.NewRegistry()

	// past the 32-bit epoch rollover
	when := time.Date(2040, 1, 2, 3, 4, 5, 0, time.UTC)
	secs := uint64(when.Unix())
	words := []uint16{
		uint16(secs >> 48),
		uint16(secs >> 32),
		uint16(secs >> 16),
		uint16(secs),
	}

	kind, err := ParseKind("timestamp64")
	if err != nil {
		t.Fatalf("parse kind: %v", err)
	}
	c := NewPointConsumer("plant.clock64", kind, BigEndian, HighWordFirst, st)
	if err := reg.Register(200, kind.Width(), c); err != nil {
		t.Fatalf("register: %v", err)
	}

	res := binding.Dispatch(reg, 200, words)
	if res.Dispatched != 1 || res.Skipped != 0 {
		t.Fatalf("dispatch result: %+v", res)
	}

	v, ok := st.Get("plant.clock64")
	if !ok {
		t.Fatalf("point not published")
	}
	if v.Text != when.Format(time.RFC3339) {
		t.Fatalf("timestamp text: got=%q want=%q", v.Text, when.Format(time.RFC3339))
	}
	if v.Num != float64(secs) {
		t.Fatalf("timestamp seconds: got=%v want=%d", v.Num, secs)
	}
}

func TestPointConsumerSignedKinds(t *testing.T) {
	testlog.Start(t)
	st := points.NewStore()

	c := NewPointConsumer("tank.delta", KindInt32, BigEndian, HighWordFirst, st)
	n := int32(-42)
	u := uint32(n)
	c.Consume([]uint16{uint16(u >> 16), uint16(u)})

	v, ok := st.Get("tank.delta")
	if !ok {
		t.Fatalf("point not published")
	}
	if v.Num != -42 || v.Text != "-42" {
		t.Fatalf("decoded: num=%v text=%q", v.Num, v.Text)
	}
}
