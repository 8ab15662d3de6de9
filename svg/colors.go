package svg

import (
	"regexp"
	"strings"
)

var (
	hexColorRe   = regexp.MustCompile(`#([0-9a-fA-F]{3}){1,2}\b`)
	rgbColorRe   = regexp.MustCompile(`(?i)rgba?\(\s*\d+\s*,\s*\d+\s*,\s*\d+\s*(?:,\s*[\d.]+\s*)?\)`)
	hslColorRe   = regexp.MustCompile(`(?i)hsla?\(\s*\d+\s*,\s*[\d.]+%\s*,\s*[\d.]+%\s*(?:,\s*[\d.]+\s*)?\)`)
	namedAttrRe  = regexp.MustCompile(`(?i)(?:fill|stroke|stop-color|color)=["']([a-zA-Z]+)["']`)
	styleColorRe = regexp.MustCompile(`(?i)style=["'][^"']*?(?:fill|stroke|color):\s*([^;}"']+)`)
)

// namedColors is the subset of CSS color keywords picked up from attributes.
var namedColors = map[string]struct{}{
	"black": {}, "white": {}, "red": {}, "green": {}, "blue": {}, "yellow": {},
	"cyan": {}, "magenta": {}, "gray": {}, "grey": {}, "orange": {}, "pink": {},
	"purple": {}, "brown": {}, "navy": {}, "teal": {}, "olive": {}, "maroon": {},
	"aqua": {}, "fuchsia": {}, "lime": {}, "silver": {}, "gold": {}, "coral": {},
	"salmon": {}, "tomato": {}, "turquoise": {}, "violet": {}, "indigo": {},
	"beige": {}, "ivory": {}, "khaki": {}, "lavender": {}, "plum": {}, "tan": {},
	"chocolate": {}, "crimson": {}, "darkblue": {}, "darkgreen": {}, "darkred": {},
	"lightblue": {}, "lightgreen": {}, "lightgray": {}, "lightgrey": {},
}

var specialColorValues = map[string]struct{}{
	"none": {}, "transparent": {}, "inherit": {}, "currentcolor": {}, "initial": {},
}

// ExtractColors returns the distinct colors used by the markup in the order
// they were first found: hex values, rgb(a), hsl(a), named colors in
// presentation attributes and finally colors set in style attributes.
// Short hex values are expanded to six digits.
func ExtractColors(markup string) []string {
	var (
		colors []string
		seen   = make(map[string]struct{})
	)
	add := func(c string) {
		if _, ok := specialColorValues[c]; ok {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		colors = append(colors, c)
	}

	for _, re := range []*regexp.Regexp{hexColorRe, rgbColorRe, hslColorRe} {
		for _, m := range re.FindAllString(markup, -1) {
			add(NormalizeColor(strings.ToLower(m)))
		}
	}
	for _, m := range namedAttrRe.FindAllStringSubmatch(markup, -1) {
		name := strings.ToLower(m[1])
		if _, ok := namedColors[name]; ok {
			add(name)
		}
	}
	for _, m := range styleColorRe.FindAllStringSubmatch(markup, -1) {
		v := strings.ToLower(strings.TrimSpace(m[1]))
		if v != "" {
			add(NormalizeColor(v))
		}
	}
	return colors
}

// NormalizeColor expands the #rgb shorthand to #rrggbb.
func NormalizeColor(c string) string {
	if len(c) == 4 && c[0] == '#' && isHex(c[1:]) {
		return string([]byte{'#', c[1], c[1], c[2], c[2], c[3], c[3]})
	}
	return c
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
