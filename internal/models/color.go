package models

import (
	"regexp"
	"strings"
)

// DefaultColor is applied to collections and items written without a color.
const DefaultColor = "#4ECDC4"

// ColorPalette lists the preset colors offered for collections and items.
var ColorPalette = []string{
	"#FF6B6B",
	"#4ECDC4",
	"#45B7D1",
	"#FFA07A",
	"#98D8C8",
	"#F7DC6F",
	"#BB8FCE",
	"#85C1E2",
	"#F8B88B",
	"#96CEB4",
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)

// NormalizeColor upper-cases a valid hex color and falls back to fallback
// (or DefaultColor) for empty or malformed input.
func NormalizeColor(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if hexColor.MatchString(raw) {
		return strings.ToUpper(raw)
	}
	if fallback != "" && hexColor.MatchString(fallback) {
		return strings.ToUpper(fallback)
	}
	return DefaultColor
}
