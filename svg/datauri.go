package svg

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// MIMEType is the media type of SVG documents.
const MIMEType = "image/svg+xml"

// ErrDataURI is returned for a malformed data URI.
var ErrDataURI = errors.New("malformed data URI")

// DataURI embeds the markup into a base64 encoded data URI.
func DataURI(markup []byte) string {
	return "data:" + MIMEType + ";base64," + base64.StdEncoding.EncodeToString(markup)
}

// DecodeDataURI returns the media type and the payload of a data URI.
// Both the base64 and the percent-encoded forms are accepted.
func DecodeDataURI(uri string) (string, []byte, error) {
	uri = strings.TrimSpace(uri)
	if !strings.HasPrefix(uri, "data:") {
		return "", nil, ErrDataURI
	}
	meta, payload, ok := strings.Cut(uri[len("data:"):], ",")
	if !ok {
		return "", nil, ErrDataURI
	}

	params := strings.Split(meta, ";")
	mime := params[0]
	if mime == "" {
		mime = "text/plain"
	}
	isBase64 := false
	for _, p := range params[1:] {
		if p == "base64" {
			isBase64 = true
		}
	}

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			// Some producers strip the padding.
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
			if err != nil {
				return "", nil, fmt.Errorf("%w: %v", ErrDataURI, err)
			}
		}
		return mime, data, nil
	}
	data, err := url.PathUnescape(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrDataURI, err)
	}
	return mime, []byte(data), nil
}
