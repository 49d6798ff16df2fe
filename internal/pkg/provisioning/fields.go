package provisioning

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Field extraction over the flat transaction payload. Callers submit JSON
// with loosely typed values; each getter coerces to the declared type or
// fails with a FieldError naming the field, which the controller surfaces as
// a 400.

func getString(payload map[string]any, field string) (string, error) {
	v, ok := payload[field]
	if !ok || v == nil {
		return "", &FieldError{Field: field, Reason: "missing required field"}
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(val), nil
	default:
		return "", &FieldError{Field: field, Reason: "expected string"}
	}
}

func getInt(payload map[string]any, field string) (int64, error) {
	v, ok := payload[field]
	if !ok || v == nil {
		return 0, &FieldError{Field: field, Reason: "missing required field"}
	}
	switch val := v.(type) {
	case float64:
		if val != math.Trunc(val) {
			return 0, &FieldError{Field: field, Reason: "expected integer"}
		}
		return int64(val), nil
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, &FieldError{Field: field, Reason: "expected integer"}
		}
		return n, nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
		if err != nil {
			return 0, &FieldError{Field: field, Reason: "expected integer"}
		}
		return n, nil
	case int:
		return int64(val), nil
	case int64:
		return val, nil
	default:
		return 0, &FieldError{Field: field, Reason: "expected integer"}
	}
}

func getFloat(payload map[string]any, field string) (float64, error) {
	v, ok := payload[field]
	if !ok || v == nil {
		return 0, &FieldError{Field: field, Reason: "missing required field"}
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, &FieldError{Field: field, Reason: "expected number"}
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, &FieldError{Field: field, Reason: "expected number"}
		}
		return f, nil
	case int:
		return float64(val), nil
	default:
		return 0, &FieldError{Field: field, Reason: "expected number"}
	}
}

func getBool(payload map[string]any, field string) (bool, error) {
	v, ok := payload[field]
	if !ok || v == nil {
		return false, &FieldError{Field: field, Reason: "missing required field"}
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(val))
		if err != nil {
			return false, &FieldError{Field: field, Reason: "expected boolean"}
		}
		return b, nil
	default:
		return false, &FieldError{Field: field, Reason: "expected boolean"}
	}
}
