// Package jsonx recovers a JSON object from free-form model output.
package jsonx

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Result is the outcome of Parse: either Parsed or Unparseable.
type Result interface {
	isResult()
}

// Parsed holds the raw bytes of a JSON object found in the input.
type Parsed struct {
	Raw json.RawMessage
	// Recovered is true when the object was cut out of surrounding text.
	Recovered bool
}

// Unparseable means no JSON object could be found.
type Unparseable struct {
	Reason string
}

func (Parsed) isResult()      {}
func (Unparseable) isResult() {}

// Parse tries the whole input as a JSON object first. Failing that it tries the
// span between the first '{' and the last '}', which strips code fences and prose
// that models like to wrap around their answer.
func Parse(text string) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Unparseable{Reason: "empty output"}
	}
	if isObject([]byte(trimmed)) {
		return Parsed{Raw: json.RawMessage(trimmed)}
	}
	start := strings.IndexByte(trimmed, '{')
	end := strings.LastIndexByte(trimmed, '}')
	if start < 0 || end <= start {
		return Unparseable{Reason: "no object delimiters"}
	}
	candidate := []byte(trimmed[start : end+1])
	if !isObject(candidate) {
		return Unparseable{Reason: "invalid json between delimiters"}
	}
	return Parsed{Raw: json.RawMessage(candidate), Recovered: true}
}

// Decode parses text into v. It reports false when the text holds no JSON object
// or the object does not fit v. Numbers bound to interface values decode as
// json.Number so long identifiers keep every digit.
func Decode(text string, v any) bool {
	p, ok := Parse(text).(Parsed)
	if !ok {
		return false
	}
	return Unmarshal(p.Raw, v) == nil
}

// Unmarshal is json.Unmarshal with UseNumber.
func Unmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func isObject(b []byte) bool {
	if len(b) == 0 || b[0] != '{' {
		return false
	}
	return json.Valid(b) && bytes.HasSuffix(bytes.TrimSpace(b), []byte("}"))
}
