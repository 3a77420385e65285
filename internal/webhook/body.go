// Package webhook holds what the source adapters share: tolerant request-body
// decoding, candidate-field extraction, and the JSON response envelope.
package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// maxMultipartMemory bounds in-memory multipart parsing; larger parts spill to disk.
const maxMultipartMemory = 10 << 20

// ParsedBody is a request body decoded into a flat field map, plus the raw text
// when the body was read as text. Decoding never hard-fails on an unexpected
// encoding; the worst case is a raw-text capture under the "raw" key.
type ParsedBody struct {
	Fields      map[string]any
	ContentType string
	RawText     string
}

// ParseBody decodes the request body by content type, in documented priority:
// multipart form, JSON, urlencoded form, then a JSON attempt with raw-text
// fallback. Returns an error only when the body cannot be read at all.
func ParseBody(r *http.Request) (*ParsedBody, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.Contains(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
			return nil, err
		}
		fields := make(map[string]any, len(r.MultipartForm.Value))
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				fields[k] = vs[0]
			}
		}
		return &ParsedBody{Fields: fields, ContentType: contentType}, nil
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	rawText := string(raw)

	if strings.Contains(contentType, "application/json") {
		fields := map[string]any{}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &fields); err != nil {
				fields = map[string]any{"_invalidJson": true}
			}
		}
		return &ParsedBody{Fields: fields, ContentType: contentType, RawText: rawText}, nil
	}

	if strings.Contains(contentType, "application/x-www-form-urlencoded") {
		return &ParsedBody{Fields: formFields(rawText), ContentType: contentType, RawText: rawText}, nil
	}

	// Unknown content type: try JSON, else keep the raw text.
	fields := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &fields); err != nil {
			fields = map[string]any{"raw": rawText}
		}
	}
	return &ParsedBody{Fields: fields, ContentType: contentType, RawText: rawText}, nil
}

func formFields(rawText string) map[string]any {
	values, err := url.ParseQuery(rawText)
	if err != nil {
		return map[string]any{"raw": rawText}
	}
	fields := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			fields[k] = vs[0]
		}
	}
	return fields
}

// Keys returns up to max field names from the body, for keys-only debug output.
func (b *ParsedBody) Keys(max int) []string {
	keys := make([]string, 0, len(b.Fields))
	for k := range b.Fields {
		if len(keys) >= max {
			break
		}
		keys = append(keys, k)
	}
	return keys
}
