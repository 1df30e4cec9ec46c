package jsontime

import (
	"encoding/json"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Unix is a time.Time carried as Unix seconds in JSON and msgpack.
// Session expiry uses this encoding. The zero time encodes as 0, and
// 0 or null decodes back to the zero time.
type Unix time.Time

// Time returns the underlying time.Time.
func (u Unix) Time() time.Time {
	return time.Time(u)
}

// IsZero reports whether u is the zero time.
func (u Unix) IsZero() bool {
	return time.Time(u).IsZero()
}

func (u Unix) epoch() int64 {
	if time.Time(u).IsZero() {
		return 0
	}
	return time.Time(u).Unix()
}

func unixFromEpoch(sec int64) Unix {
	if sec == 0 {
		return Unix{}
	}
	return Unix(time.Unix(sec, 0))
}

// MarshalJSON implements json.Marshaler.
func (u Unix) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.epoch())
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Unix) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*u = Unix{}
		return nil
	}
	var sec int64
	if err := json.Unmarshal(b, &sec); err != nil {
		return err
	}
	*u = unixFromEpoch(sec)
	return nil
}

// EncodeMsgpack implements msgpack.CustomEncoder.
func (u Unix) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.EncodeInt64(u.epoch())
}

// DecodeMsgpack implements msgpack.CustomDecoder.
func (u *Unix) DecodeMsgpack(dec *msgpack.Decoder) error {
	sec, err := dec.DecodeInt64()
	if err != nil {
		return err
	}
	*u = unixFromEpoch(sec)
	return nil
}
