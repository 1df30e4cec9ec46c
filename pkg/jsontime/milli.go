// Package jsontime provides the timestamp encodings used on the
// platform wire and in cached snapshots: epoch milliseconds (Milli),
// epoch seconds (Unix), and a tolerant parser (ParseAny) for the mixed
// formats stored rows come back with.
package jsontime

import (
	"encoding/json"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Milli is a time.Time carried as Unix milliseconds in JSON and
// msgpack. The zero time encodes as 0, and 0 or null decodes back to
// the zero time, so IsZero survives a round trip.
type Milli time.Time

// NowEpochMilli returns the current time as a Milli.
func NowEpochMilli() Milli {
	return Milli(time.Now())
}

// Time returns the underlying time.Time.
func (m Milli) Time() time.Time {
	return time.Time(m)
}

// IsZero reports whether m is the zero time.
func (m Milli) IsZero() bool {
	return time.Time(m).IsZero()
}

func (m Milli) epoch() int64 {
	if time.Time(m).IsZero() {
		return 0
	}
	return time.Time(m).UnixMilli()
}

func milliFromEpoch(ms int64) Milli {
	if ms == 0 {
		return Milli{}
	}
	return Milli(time.UnixMilli(ms))
}

// MarshalJSON implements json.Marshaler.
func (m Milli) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.epoch())
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *Milli) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = Milli{}
		return nil
	}
	var ms int64
	if err := json.Unmarshal(b, &ms); err != nil {
		return err
	}
	*m = milliFromEpoch(ms)
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder. Defined time types
// need their own codec; reflection sees no exported fields.
func (m Milli) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeInt64(m.epoch())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (m *Milli) DecodeMsgpack(dec *msgpack.Decoder) error {
	ms, err := dec.DecodeInt64()
	if err != nil {
		return err
	}
	*m = milliFromEpoch(ms)
	return nil
}
