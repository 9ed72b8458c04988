package analytics

import (
	"sort"
	"strconv"
	"strings"
)

// OrderByCode sorts identifiers for display: numeric-like codes first by
// value, then the rest case-insensitively. The input is not modified.
func OrderByCode(codes []string) []string {
	out := make([]string, len(codes))
	copy(out, codes)
	sort.SliceStable(out, func(i, j int) bool {
		return codeLess(out[i], out[j])
	})
	return out
}

func codeLess(a, b string) bool {
	aNum, bNum := isNumericCode(a), isNumericCode(b)
	if aNum != bNum {
		return aNum
	}
	if aNum {
		av, _ := strconv.ParseFloat(a, 64)
		bv, _ := strconv.ParseFloat(b, 64)
		return av < bv
	}
	return strings.ToLower(a) < strings.ToLower(b)
}

// isNumericCode accepts digit strings with at most one decimal point
func isNumericCode(s string) bool {
	digits := strings.Replace(s, ".", "", 1)
	if digits == "" {
		return false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
