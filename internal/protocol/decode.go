package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Response is one decoded response file.
type Response struct {
	Raw    []byte
	Fields map[string]json.RawMessage
}

// DecodeResponse parses a response file and surfaces the reserved error triplet
// as *RemoteExecutionError.
func DecodeResponse(raw []byte) (Response, error) {
	trimmed := bytes.TrimSpace(raw)
	resp := Response{Raw: raw, Fields: map[string]json.RawMessage{}}
	if len(trimmed) == 0 {
		return Response{}, fmt.Errorf("%w: empty response", ErrMalformedResponse)
	}
	if err := json.Unmarshal(trimmed, &resp.Fields); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if rerr := remoteError(resp.Fields); rerr != nil {
		return resp, rerr
	}
	return resp, nil
}

func remoteError(fields map[string]json.RawMessage) *RemoteExecutionError {
	idRaw, hasID := fields[ErrorIDField]
	descRaw, hasDesc := fields[ErrorDescField]
	if !hasID && !hasDesc {
		return nil
	}
	out := &RemoteExecutionError{}
	if hasID {
		out.Code = decodeCode(idRaw)
	}
	if hasDesc {
		var s string
		if err := json.Unmarshal(descRaw, &s); err != nil {
			s = string(descRaw)
		}
		out.Description = s
	}
	if dataRaw, ok := fields[ErrorDataField]; ok {
		out.Data = decodeAny(dataRaw)
	}
	return out
}

func decodeCode(raw json.RawMessage) int64 {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := n.Int64(); err == nil {
			return v
		}
		if f, err := n.Float64(); err == nil {
			return int64(f)
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			return v
		}
	}
	return 0
}

func decodeAny(raw json.RawMessage) any {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return string(raw)
	}
	return v
}

// Field unmarshals the named field into out.
func (r Response) Field(name string, out any) error {
	raw, ok := r.Fields[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrMissingField, name)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: field %q: %v", ErrMalformedResponse, name, err)
	}
	return nil
}

// Value decodes the named field as an int, float64 or string.
func (r Response) Value(name string) (any, error) {
	raw, ok := r.Fields[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMissingField, name)
	}
	return DecodeValue(raw)
}

// Values decodes the named field as a list of int, float64 or string.
func (r Response) Values(name string) ([]any, error) {
	var items []json.RawMessage
	if err := r.Field(name, &items); err != nil {
		return nil, err
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		v, err := DecodeValue(item)
		if err != nil {
			return nil, fmt.Errorf("field %q[%d]: %w", name, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// DecodeValue maps one JSON scalar onto int, float64 or string. Integral
// literals become int; anything with a fraction or exponent becomes float64.
func DecodeValue(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty value", ErrMalformedResponse)
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		return s, nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return numberValue(json.Number(trimmed))
	default:
		return nil, &UnsupportedTypeError{Value: string(trimmed)}
	}
}

func numberValue(n json.Number) (any, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if v, err := strconv.ParseInt(s, 10, 0); err == nil {
			return int(v), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("%w: number %q: %v", ErrMalformedResponse, s, err)
	}
	return f, nil
}
