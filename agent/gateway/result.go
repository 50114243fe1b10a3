package gateway

import (
	"errors"
	"fmt"
)

var (
	ErrParseFailure = errors.New("parse failure")
	ErrTransport    = errors.New("transport failure")
)

type Status int

const (
	StatusSuccess Status = iota + 1
	StatusParseFailure
	StatusTransportFailure
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusParseFailure:
		return "parse_failure"
	case StatusTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Result is the outcome of one exchange. Exactly one variant is populated:
// Success carries Object (structured) or Content (plain text), ParseFailure
// carries Raw, TransportFailure carries Cause.
type Result struct {
	Status  Status
	Object  map[string]any
	Content string
	Raw     string
	Cause   error
}

func Structured(obj map[string]any) Result {
	if obj == nil {
		obj = map[string]any{}
	}
	return Result{Status: StatusSuccess, Object: obj}
}

func Text(content string) Result {
	return Result{Status: StatusSuccess, Content: content}
}

func ParseFailure(raw string) Result {
	return Result{Status: StatusParseFailure, Raw: raw}
}

func TransportFailure(cause error) Result {
	return Result{Status: StatusTransportFailure, Cause: cause}
}

func (r Result) OK() bool {
	return r.Status == StatusSuccess
}

func (r Result) Err() error {
	switch r.Status {
	case StatusSuccess:
		return nil
	case StatusParseFailure:
		return ErrParseFailure
	case StatusTransportFailure:
		if r.Cause == nil {
			return ErrTransport
		}
		return fmt.Errorf("%w: %v", ErrTransport, r.Cause)
	default:
		return fmt.Errorf("%w: empty result", ErrTransport)
	}
}

// Map renders the result in its wire shape: the parsed object,
// {"content": ...}, {"error": "parse failure", "raw_content": ...} or
// {"error": ...}.
func (r Result) Map() map[string]any {
	switch r.Status {
	case StatusSuccess:
		if r.Object != nil {
			return r.Object
		}
		return map[string]any{"content": r.Content}
	case StatusParseFailure:
		return map[string]any{"error": ErrParseFailure.Error(), "raw_content": r.Raw}
	default:
		return map[string]any{"error": r.Err().Error()}
	}
}
