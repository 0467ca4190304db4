package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type LabelCount struct {
	Label string
	Count uint64
}

// SortByCount sorts labels by count (descending), then by label (ascending)
func SortByCount(counts map[string]uint64) []LabelCount {
	out := make([]LabelCount, 0, len(counts))
	for label, count := range counts {
		out = append(out, LabelCount{Label: label, Count: count})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Label < out[j].Label
		}
		return out[i].Count > out[j].Count
	})

	return out
}

// FormatNumber formats a number with comma separators for readability
func FormatNumber(n uint64) string {
	str := strconv.FormatUint(n, 10)
	if len(str) <= 3 {
		return str
	}

	var b strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// FormatUptime renders seconds as a compact duration such as "1h02m03s".
func FormatUptime(seconds float64) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm%02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatErrorBreakdown lists error contexts as "ctx=n" pairs, busiest first.
func FormatErrorBreakdown(counts map[string]uint64) string {
	if len(counts) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(counts))
	for _, lc := range SortByCount(counts) {
		parts = append(parts, fmt.Sprintf("%s=%s", lc.Label, FormatNumber(lc.Count)))
	}
	return strings.Join(parts, " ")
}
