// Package svg provides the markup level helpers of the converter: reading the
// intrinsic size of a document, extracting its color palette, data URI
// handling and framework component generation. It never renders anything.
package svg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// The intrinsic size browsers assume for a replaced element without dimensions.
const (
	DefaultWidth  = 300
	DefaultHeight = 150
)

// ErrNoSVG is returned when the markup has no <svg> root element.
var ErrNoSVG = errors.New("no svg root element found")

// ViewBox holds the four values of the viewBox attribute.
type ViewBox struct {
	MinX, MinY    float64
	Width, Height float64
}

// Size is the intrinsic width and height of a document in user units.
type Size struct {
	Width, Height float64
}

var lengthRe = regexp.MustCompile(`^\s*[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?`)

// Root returns the attributes of the first <svg> element of the markup.
func Root(data []byte) (xml.StartElement, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = false
	d.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	for {
		tok, err := d.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return xml.StartElement{}, ErrNoSVG
			}
			return xml.StartElement{}, err
		}
		if se, ok := tok.(xml.StartElement); ok {
			if strings.EqualFold(se.Name.Local, "svg") {
				return se, nil
			}
			return xml.StartElement{}, ErrNoSVG
		}
	}
}

// IsSVG reports whether the data is SVG markup.
func IsSVG(data []byte) bool {
	_, err := Root(data)
	return err == nil
}

// Attr returns the value of the named root attribute.
func Attr(se xml.StartElement, name string) (string, bool) {
	for _, a := range se.Attr {
		if strings.EqualFold(a.Name.Local, name) {
			return a.Value, true
		}
	}
	return "", false
}

// ParseViewBox parses a viewBox value. The four numbers may be separated
// by whitespace and/or commas.
func ParseViewBox(s string) (ViewBox, bool) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) != 4 {
		return ViewBox{}, false
	}
	var v [4]float64
	for i, f := range fields {
		n, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return ViewBox{}, false
		}
		v[i] = n
	}
	return ViewBox{MinX: v[0], MinY: v[1], Width: v[2], Height: v[3]}, true
}

// Dimensions returns the intrinsic size of the document: the width and
// height attributes when both are set, the viewBox size otherwise, and
// finally 300x150 for whatever is still missing.
func Dimensions(data []byte) Size {
	var size Size

	root, err := Root(data)
	if err != nil {
		return Size{Width: DefaultWidth, Height: DefaultHeight}
	}

	w, wok := Attr(root, "width")
	h, hok := Attr(root, "height")
	if wok && hok {
		size.Width = parseLength(w)
		size.Height = parseLength(h)
	}
	if size.Width == 0 || size.Height == 0 {
		if vb, ok := Attr(root, "viewBox"); ok {
			if box, ok := ParseViewBox(vb); ok {
				size.Width, size.Height = box.Width, box.Height
			}
		}
	}
	if size.Width <= 0 {
		size.Width = DefaultWidth
	}
	if size.Height <= 0 {
		size.Height = DefaultHeight
	}
	return size
}

// parseLength reads the leading number of a length, ignoring its unit.
func parseLength(s string) float64 {
	m := lengthRe.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(m), 64)
	if err != nil {
		return 0
	}
	return n
}
