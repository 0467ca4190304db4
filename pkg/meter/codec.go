package meter

import (
	"bytes"
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireSnapshot mirrors the producer's JSON. Pointers distinguish absent fields
// from zero values.
type wireSnapshot struct {
	Cnt   *int       `json:"cnt"`
	Peak  *[]float64 `json:"peak"`
	Max   *[]float64 `json:"max,omitempty"`
	Xruns *int       `json:"xruns,omitempty"`
}

// Decode parses one wire frame. Trailing whitespace (the producer terminates
// websocket frames with CRLF) is accepted; anything else fails closed with a
// *ParseError.
func Decode(data []byte) (Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Snapshot{}, newParseError(data, fmt.Errorf("%w: not a JSON object", ErrMalformed))
	}

	var w wireSnapshot
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return Snapshot{}, newParseError(data, err)
	}
	if w.Cnt == nil {
		return Snapshot{}, newParseError(data, fmt.Errorf("%w: missing cnt", ErrMalformed))
	}
	if w.Peak == nil {
		return Snapshot{}, newParseError(data, fmt.Errorf("%w: missing peak", ErrMalformed))
	}

	s := Snapshot{ChannelCount: *w.Cnt, Peak: *w.Peak, Xruns: w.Xruns}
	if w.Max != nil {
		s.Max = *w.Max
	}
	if err := s.Validate(); err != nil {
		return Snapshot{}, newParseError(data, err)
	}
	return s, nil
}

// Encode renders a snapshot in the wire schema. Max and xruns are omitted when
// absent.
func Encode(s Snapshot) ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	cnt := s.ChannelCount
	peak := s.Peak
	if peak == nil {
		peak = []float64{}
	}
	w := wireSnapshot{Cnt: &cnt, Peak: &peak, Xruns: s.Xruns}
	if s.Max != nil {
		held := s.Max
		w.Max = &held
	}
	return json.Marshal(w)
}
