package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
)

// maxDownloadSize limits the size of a remote source file.
const maxDownloadSize = 32 << 20

// DownloadFile downloads the source image from the internet and saves it into a temporary file.
// The caller is responsible for removing the file.
func DownloadFile(ctx context.Context, uri string) (*os.File, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid source URI %s: %w", uri, err)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to download file from URI: %s: %w", uri, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unable to download file from URI: %s, status %v", uri, res.Status)
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxDownloadSize))
	if err != nil {
		return nil, fmt.Errorf("unable to read response body: %w", err)
	}

	if !IsSupportedContent(http.DetectContentType(data), data) &&
		!IsSupportedContent(res.Header.Get("Content-Type"), nil) {
		return nil, fmt.Errorf("the downloaded file is not a valid image type")
	}

	tmpfile, err := os.CreateTemp("", "svgkit-*")
	if err != nil {
		return nil, fmt.Errorf("unable to create temporary file: %w", err)
	}

	// Copy the binary data into the temporary file.
	if _, err = io.Copy(tmpfile, bytes.NewBuffer(data)); err != nil {
		tmpfile.Close()
		os.Remove(tmpfile.Name())
		return nil, fmt.Errorf("unable to copy the source URI into the destination file: %w", err)
	}
	if _, err := tmpfile.Seek(0, io.SeekStart); err != nil {
		tmpfile.Close()
		os.Remove(tmpfile.Name())
		return nil, err
	}

	return tmpfile, nil
}

// IsValidUrl tests a string to determine if it is a well-structured url or not.
func IsValidUrl(uri string) bool {
	_, err := url.ParseRequestURI(uri)
	if err != nil {
		return false
	}

	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return false
	}

	return true
}

// IsSupportedContent reports whether a content type (or, for the plain text
// types reported for markup without an XML declaration, the leading bytes)
// denotes something the converter can read.
func IsSupportedContent(ctype string, head []byte) bool {
	ctype = strings.ToLower(ctype)
	if strings.Contains(ctype, "image") || strings.Contains(ctype, "xml") {
		return true
	}
	return bytes.Contains(head, []byte("<svg"))
}

// DetectContentType detects the file type by reading MIME type information of the file content.
func DetectContentType(fname string) (string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("could not close the opened file: %v", err)
		}
	}()

	// Only the first 512 bytes are used to sniff the content type.
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	// Always returns a valid content-type and "application/octet-stream" if no others seemed to match.
	return http.DetectContentType(buffer[:n]), nil
}
