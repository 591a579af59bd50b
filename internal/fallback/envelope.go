package fallback

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// FormatVersion tags every persisted envelope. Any change to the stored
// shape must bump it; payloads with another version are discarded.
const FormatVersion = "1.0"

var (
	// ErrVersionMismatch means the payload carries a version other than
	// FormatVersion (including a missing or non-string version).
	ErrVersionMismatch = errors.New("fallback: format version mismatch")
	// ErrNoData means the envelope is valid but has no data field.
	ErrNoData = errors.New("fallback: envelope has no data")
)

// Envelope is the persisted representation of a snapshot.
type Envelope struct {
	Data    *Data  `json:"data"`
	Version string `json:"version"`
}

// Encode wraps d in an Envelope tagged with FormatVersion.
func Encode(d *Data) ([]byte, error) {
	b, err := json.Marshal(Envelope{Data: d, Version: FormatVersion})
	if err != nil {
		return nil, fmt.Errorf("encode fallback envelope: %w", err)
	}
	return b, nil
}

// Decode parses a persisted envelope. ErrVersionMismatch and ErrNoData
// describe payloads that parse but hold no usable snapshot: a non-object
// payload, a missing or different version, or an absent, null, false, zero
// or empty data field. Any other error means the payload is malformed.
//
// Numbers inside records and metadata decode as json.Number.
func Decode(raw []byte) (*Data, error) {
	var top any
	if err := decodeStrict(raw, &top); err != nil {
		return nil, fmt.Errorf("decode fallback envelope: %w", err)
	}
	if top == nil {
		return nil, errors.New("decode fallback envelope: payload is null")
	}
	obj, ok := top.(map[string]any)
	if !ok {
		return nil, ErrVersionMismatch
	}
	if v, ok := obj["version"].(string); !ok || v != FormatVersion {
		return nil, ErrVersionMismatch
	}
	if empty(obj["data"]) {
		return nil, ErrNoData
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode fallback envelope: %w", err)
	}
	var d Data
	if err := decodeStrict(env.Data, &d); err != nil {
		return nil, fmt.Errorf("decode fallback data: %w", err)
	}
	return &d, nil
}

// empty reports whether a decoded JSON value counts as no data.
func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	}
	return false
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after JSON value")
	}
	return nil
}
