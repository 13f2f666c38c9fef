package decode

import (
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mfeldt/regbank/internal/binding"
	"github.com/mfeldt/regbank/internal/points"
)

// NewPointConsumer returns a binding consumer that decodes its word set as
// kind k and publishes the result into st under name. The dispatcher
// guarantees exactly k.Width() words in ascending address order.
func NewPointConsumer(name string, k Kind, e Endianness, o WordOrder, st *points.Store) binding.Consumer {
	return binding.ConsumerFunc(func(words []uint16) {
		v := decodeValue(name, k, e, o, words)
		st.Publish(v)
		log.Debug().
			Str("point", name).
			Str("kind", string(k)).
			Str("value", v.Text).
			Msg("point_update")
	})
}

func decodeValue(name string, k Kind, e Endianness, o WordOrder, words []uint16) points.Value {
	v := points.Value{Name: name, Kind: string(k)}
	switch k {
	case KindUint16:
		u := Uint16(words, e)
		v.Num = float64(u)
		v.Text = strconv.FormatUint(uint64(u), 10)
	case KindInt16:
		n := int16(Uint16(words, e))
		v.Num = float64(n)
		v.Text = strconv.FormatInt(int64(n), 10)
	case KindUint32:
		u := Uint32(words, e, o)
		v.Num = float64(u)
		v.Text = strconv.FormatUint(uint64(u), 10)
	case KindInt32:
		n := int32(Uint32(words, e, o))
		v.Num = float64(n)
		v.Text = strconv.FormatInt(int64(n), 10)
	case KindUint64:
		u := Uint64(words, e, o)
		v.Num = float64(u)
		v.Text = strconv.FormatUint(u, 10)
	case KindInt64:
		n := int64(Uint64(words, e, o))
		v.Num = float64(n)
		v.Text = strconv.FormatInt(n, 10)
	case KindFloat32:
		f := Float32(words, e, o)
		v.Num = float64(f)
		v.Text = strconv.FormatFloat(float64(f), 'g', -1, 32)
	case KindFloat64:
		f := Float64(words, e, o)
		v.Num = f
		v.Text = strconv.FormatFloat(f, 'g', -1, 64)
	case KindTimestamp:
		u := Uint32(words, e, o)
		t := time.Unix(int64(u), 0).UTC()
		v.Num = float64(u)
		v.Text = t.Format(time.RFC3339)
	case KindTimestamp64:
		u := Uint64(words, e, o)
		t := time.Unix(int64(u), 0).UTC()
		v.Num = float64(u)
		v.Text = t.Format(time.RFC3339)
	}
	return v
}
