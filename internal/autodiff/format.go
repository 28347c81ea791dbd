package autodiff

import (
	"strconv"
	"strings"
)

// Format renders a value for diagnostics.
func Format(v *Value) string {
	if v == nil {
		return "<nil>"
	}
	return strconv.FormatFloat(v.Data, 'g', -1, 64)
}

// FormatVec renders a vector of values as "[a b c]".
func FormatVec(vs []*Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = Format(v)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// FormatFloats renders a plain vector in the same notation as FormatVec.
func FormatFloats(xs []float64) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.FormatFloat(x, 'g', -1, 64)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
