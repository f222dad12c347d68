package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// StravaTimeLayout is the timestamp format the API uses for start_date fields.
const StravaTimeLayout = "2006-01-02T15:04:05Z"

// ConvertToInt64 handles the numeric shapes a decoded JSON document can hold.
// Floats are accepted only when they carry no fractional part.
func ConvertToInt64(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("cannot convert %v to int64: fractional value", v)
		}
		// float64(MaxInt64) rounds up to 2^63, so the upper bound is exclusive.
		if v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, fmt.Errorf("cannot convert %v to int64: out of range", v)
		}
		return int64(v), nil
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("cannot convert %q to int64: %w", v.String(), err)
		}
		return ConvertToInt64(f)
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", val)
	}
}

func ConvertToFloat64(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", val)
	}
}

// ConvertToString accepts strings and numbers; numbers keep their JSON text.
func ConvertToString(val interface{}) (string, error) {
	switch v := val.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case int, int64:
		return fmt.Sprintf("%d", v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", val)
	}
}

func ConvertToBool(val interface{}) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	default:
		return false, fmt.Errorf("cannot convert %T to bool", val)
	}
}

// ConvertDateTime parses an ISO-8601 timestamp and normalises it to UTC.
func ConvertDateTime(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		formats := []string{
			StravaTimeLayout,
			time.RFC3339,
			time.RFC3339Nano,
		}
		for _, f := range formats {
			if t, err := time.Parse(f, v); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse datetime: %q", v)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to datetime", val)
	}
}

// UnixSeconds parses a timestamp into whole epoch seconds.
func UnixSeconds(val interface{}) (int64, error) {
	t, err := ConvertDateTime(val)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
