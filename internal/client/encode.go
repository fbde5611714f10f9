package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/bobmcallan/fund-breakdown/internal/models"
)

type jsonLine struct {
	Symbol string `json:"symbol"`
	Shares string `json:"shares"`
}

// Encode serialises lines in the given encoding and returns the body with
// its Content-Type.
func Encode(enc models.Encoding, lines models.Lines) (io.Reader, string, error) {
	switch enc {
	case models.EncodingMultipart:
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for _, l := range lines {
			suffix := strconv.Itoa(l.Label)
			if err := mw.WriteField("ticker_"+suffix, l.Ticker); err != nil {
				return nil, "", err
			}
			if err := mw.WriteField("weight_"+suffix, l.Weight); err != nil {
				return nil, "", err
			}
		}
		if err := mw.Close(); err != nil {
			return nil, "", err
		}
		return &buf, mw.FormDataContentType(), nil

	case models.EncodingCSV:
		symbols := make([]string, len(lines))
		shares := make([]string, len(lines))
		for i, l := range lines {
			symbols[i] = l.Ticker
			shares[i] = l.Weight
		}
		form := url.Values{
			"symbols": {strings.Join(symbols, ",")},
			"shares":  {strings.Join(shares, ",")},
		}
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", nil

	case models.EncodingJSON:
		payload := struct {
			Portfolio []jsonLine `json:"portfolio"`
		}{Portfolio: make([]jsonLine, len(lines))}
		for i, l := range lines {
			payload.Portfolio[i] = jsonLine{Symbol: l.Ticker, Shares: l.Weight}
		}
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
	return nil, "", fmt.Errorf("unsupported encoding %q", enc)
}
