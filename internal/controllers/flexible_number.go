package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// FlexibleNumber accepts a JSON number or a numeric string. The emotion
// detector and some frontend forms send confidences/scores either way.
type FlexibleNumber float64

func (fn *FlexibleNumber) UnmarshalJSON(data []byte) error {
	if fn == nil {
		return fmt.Errorf("FlexibleNumber: nil receiver")
	}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var num float64
	if err := json.Unmarshal(trimmed, &num); err == nil {
		*fn = FlexibleNumber(num)
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("FlexibleNumber: %q is not numeric", s)
		}
		*fn = FlexibleNumber(parsed)
		return nil
	}

	return fmt.Errorf("FlexibleNumber: expected number or string, got %s", string(data))
}

func (fn FlexibleNumber) Float64() float64 {
	return float64(fn)
}
