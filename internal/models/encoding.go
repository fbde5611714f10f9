package models

import "fmt"

// Encoding selects how lines are serialised for the analysis endpoint.
type Encoding string

const (
	// EncodingMultipart posts ticker_<label> and weight_<label> form fields.
	EncodingMultipart Encoding = "multipart"
	// EncodingCSV posts comma-separated symbols and shares fields.
	EncodingCSV Encoding = "csv"
	// EncodingJSON posts {"portfolio":[{"symbol":..,"shares":..}]}.
	EncodingJSON Encoding = "json"
)

// ParseEncoding maps a config value to an Encoding. Empty means multipart.
func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case "", EncodingMultipart:
		return EncodingMultipart, nil
	case EncodingCSV, EncodingJSON:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("unknown analysis encoding %q (want multipart, csv or json)", s)
}

// WeightMode reports whether the second column is a percentage weight
// rather than a share count.
func (e Encoding) WeightMode() bool {
	return e == EncodingMultipart
}
