package alerts

import (
	"fmt"
	"strings"
	"time"
)

// Severity tiers surfaced to callers.
const (
	SeverityHigh   = "high"
	SeverityMedium = "medium"
	SeverityLow    = "low"
)

// iconRule maps disaster-type substrings to a display icon. Order matters:
// the first matching rule wins, so "storm" beats "rain" for "rainstorm".
type iconRule struct {
	substrings []string
	icon       string
}

var iconRules = []iconRule{
	{[]string{"earthquake"}, "🌍"},
	{[]string{"flood"}, "🌊"},
	{[]string{"fire", "heat"}, "🔥"},
	{[]string{"storm", "cyclone", "wind", "thunder"}, "🌀"},
	{[]string{"volcano"}, "🌋"},
	{[]string{"drought"}, "🏜️"},
	{[]string{"landslide"}, "⛰️"},
	{[]string{"tornado"}, "🌪️"},
	{[]string{"snow", "avalanche", "cold"}, "❄️"},
	{[]string{"rain"}, "🌧️"},
}

const defaultIcon = "⚠️"

// Icon classifies a disaster type into a display icon. Total on any input.
func Icon(disasterType string) string {
	lower := strings.ToLower(disasterType)
	for _, rule := range iconRules {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return rule.icon
			}
		}
	}
	return defaultIcon
}

// Severity maps the upstream level and color tags to a tier. The color tag
// wins; a "likely" level reads as medium; everything else is low.
func Severity(level, color string) string {
	switch color {
	case "red":
		return SeverityHigh
	case "orange":
		return SeverityMedium
	case "yellow":
		return SeverityLow
	}
	if strings.Contains(strings.ToLower(level), "likely") {
		return SeverityMedium
	}
	return SeverityLow
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// TimeAgo renders an upstream timestamp relative to now. Unparseable input is
// passed through unchanged; empty input reads "Unknown time".
func TimeAgo(raw string, now time.Time) string {
	if raw == "" {
		return "Unknown time"
	}
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, "IST", ""))
	var parsed time.Time
	var ok bool
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			parsed, ok = t, true
			break
		}
	}
	if !ok {
		return raw
	}

	hours := int(now.Sub(parsed).Hours())
	days := hours / 24
	switch {
	case hours < 1:
		return "Just now"
	case hours < 24:
		return fmt.Sprintf("%d hour%s ago", hours, plural(hours))
	case days < 7:
		return fmt.Sprintf("%d day%s ago", days, plural(days))
	default:
		return parsed.Format("1/2/2006")
	}
}

func plural(n int) string {
	if n > 1 {
		return "s"
	}
	return ""
}
