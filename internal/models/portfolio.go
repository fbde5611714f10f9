// Package models defines the portfolio lines a user submits and the analysis
// results returned by the remote service.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Line is one security row of the entry form. Weight holds the raw form
// value: a percentage in weight mode or a share count in shares mode.
type Line struct {
	Label  int    `json:"label"`
	Ticker string `json:"ticker"`
	Weight string `json:"weight"`
}

// IsBlank reports whether neither field has been filled in.
func (l Line) IsBlank() bool {
	return l.Ticker == "" && l.Weight == ""
}

// Lines is the ordered form state. Slice order is display order.
type Lines []Line

// Labels returns the display labels in order.
func (ls Lines) Labels() []int {
	out := make([]int, len(ls))
	for i, l := range ls {
		out[i] = l.Label
	}
	return out
}

// Holding is one row of an analysis result.
type Holding struct {
	Name      string  `json:"name"`
	Ticker    string  `json:"ticker,omitempty"`
	Sector    string  `json:"sector,omitempty"`
	Nation    string  `json:"nation,omitempty"`
	Type      string  `json:"type,omitempty"`
	Weighting float64 `json:"weighting"`
	Price     float64 `json:"price,omitempty"`
	Value     float64 `json:"value,omitempty"`
	Direct    bool    `json:"direct,omitempty"`
}

// UnmarshalJSON accepts both the lower-case holding shape and the
// capitalised look-through shape, where the percentage is called "Weight"
// and direct holdings are flagged by "DirectHolding".
func (h *Holding) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name          string   `json:"name"`
		Ticker        string   `json:"ticker"`
		Sector        string   `json:"sector"`
		Nation        string   `json:"nation"`
		Type          string   `json:"type"`
		Weighting     *float64 `json:"weighting"`
		Weight        *float64 `json:"weight"`
		Price         float64  `json:"price"`
		Value         float64  `json:"value"`
		Direct        bool     `json:"direct"`
		DirectHolding bool     `json:"directholding"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*h = Holding{
		Name:   raw.Name,
		Ticker: raw.Ticker,
		Sector: raw.Sector,
		Nation: raw.Nation,
		Type:   raw.Type,
		Price:  raw.Price,
		Value:  raw.Value,
		Direct: raw.Direct || raw.DirectHolding,
	}
	switch {
	case raw.Weighting != nil:
		h.Weighting = *raw.Weighting
	case raw.Weight != nil:
		h.Weighting = *raw.Weight
	}
	return nil
}

// Sector is one slice of a sector breakdown.
type Sector struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Sectors is a sector breakdown in the order the service listed it.
// Names are unique.
type Sectors []Sector

// Names returns the sector names in order.
func (s Sectors) Names() []string {
	out := make([]string, len(s))
	for i, sec := range s {
		out[i] = sec.Name
	}
	return out
}

// Weights returns the sector weights in order.
func (s Sectors) Weights() []float64 {
	out := make([]float64, len(s))
	for i, sec := range s {
		out[i] = sec.Weight
	}
	return out
}

// Set stores weight under name, keeping the position of an existing entry.
func (s Sectors) Set(name string, weight float64) Sectors {
	for i := range s {
		if s[i].Name == name {
			s[i].Weight = weight
			return s
		}
	}
	return append(s, Sector{Name: name, Weight: weight})
}

// MarshalJSON writes the breakdown as a JSON object, preserving order.
func (s Sectors) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, sec := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(sec.Name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(sec.Weight)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object of sector name to weight. Object key
// order is kept, which a Go map would lose.
func (s *Sectors) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*s = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("sectors: expected object, got %v", tok)
	}

	out := Sectors{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("sectors: expected string key, got %v", keyTok)
		}
		var weight float64
		if err := dec.Decode(&weight); err != nil {
			return fmt.Errorf("sectors: weight for %q: %w", name, err)
		}
		out = out.Set(name, weight)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// Result is one successful analysis response.
type Result struct {
	Holdings   []Holding `json:"holdings"`
	Sectors    Sectors   `json:"sectors"`
	ReceivedAt time.Time `json:"received_at"`
}
