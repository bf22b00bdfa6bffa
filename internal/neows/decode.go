package neows

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// DecodeFeed decodes a raw NeoWs feed body.
func DecodeFeed(data []byte) (*Feed, error) {
	var f Feed
	if err := sonic.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "decoding feed")
	}
	return &f, nil
}

// DecodeAPOD decodes a raw APOD body.
func DecodeAPOD(data []byte) (*APOD, error) {
	var a APOD
	if err := sonic.Unmarshal(data, &a); err != nil {
		return nil, errors.Wrap(err, "decoding apod")
	}
	return &a, nil
}

// UnmarshalJSON decodes the date-keyed object while keeping key order.
func (b *DateBuckets) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*b = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("near_earth_objects: expected object, got %v", tok)
	}

	var out DateBuckets
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		date, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("near_earth_objects: expected date key, got %v", keyTok)
		}
		var objs []CloseApproachObject
		if err := dec.Decode(&objs); err != nil {
			return fmt.Errorf("near_earth_objects[%s]: %w", date, err)
		}
		out = append(out, DateBucket{Date: date, Objects: objs})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*b = out
	return nil
}

// MarshalJSON writes the buckets back as a date-keyed object in order.
func (b DateBuckets) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, bucket := range b {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(bucket.Date)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		objs := bucket.Objects
		if objs == nil {
			objs = []CloseApproachObject{}
		}
		val, err := json.Marshal(objs)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
