package ai

import (
	"math"
	"strconv"
	"strings"
)

// ParseScore converts a backend score into an integer in [0,100].
// JSON numbers are truncated, strings must hold a plain integer. Anything
// else, including out-of-range values, reports ok=false.
func ParseScore(v any) (int, bool) {
	var f float64
	switch val := v.(type) {
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case float64:
		f = val
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		f = float64(n)
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}

	score := int(f)
	if !validScore(score) {
		return 0, false
	}
	return score, true
}

func validScore(score int) bool {
	return score >= 0 && score <= 100
}
