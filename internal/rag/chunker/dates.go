package chunker

import (
	"time"
)

// Czech article dates come as "12. 4. 2025 15:30" or "12. 4. 2025".
var czechLayouts = []string{"2. 1. 2006 15:04", "2. 1. 2006"}

// ParseCzechDate converts a Czech "j. n. Y [H:i]" date to ISO YYYY-MM-DD.
// Returns nil when the string matches neither layout.
func ParseCzechDate(dateStr string) *string {
	for _, layout := range czechLayouts {
		if t, err := time.Parse(layout, dateStr); err == nil {
			iso := t.Format("2006-01-02")
			return &iso
		}
	}
	return nil
}

// NormalizeDate accepts ISO or Czech formatted dates and returns ISO, or nil
// for empty/unparseable input.
func NormalizeDate(dateStr string) *string {
	if dateStr == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", dateStr); err == nil {
		iso := dateStr
		return &iso
	}
	return ParseCzechDate(dateStr)
}
