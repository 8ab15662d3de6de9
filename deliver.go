package svgkit

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Deliverer hands a finished payload over to the user, be it a file on
// disk, a pipe or an HTTP attachment.
type Deliverer interface {
	Deliver(ctx context.Context, payload []byte, filename, mime string) error
}

// DelivererFunc adapts an ordinary function to the Deliverer interface.
type DelivererFunc func(ctx context.Context, payload []byte, filename, mime string) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, payload []byte, filename, mime string) error {
	return f(ctx, payload, filename, mime)
}

// FileDeliverer saves the payloads into a directory.
type FileDeliverer struct {
	Dir string
}

// Deliver writes the payload as Dir/filename. Only the base name of filename is used.
func (d FileDeliverer) Deliver(ctx context.Context, payload []byte, filename, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(d.Dir, 0755); err != nil {
		return fmt.Errorf("unable to create the destination directory: %w", err)
	}
	path := filepath.Join(d.Dir, filepath.Base(filename))
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return fmt.Errorf("unable to create the destination file: %w", err)
	}
	return nil
}

// WriterDeliverer streams the payload into a writer, e.g. the standard output.
type WriterDeliverer struct {
	W io.Writer
}

// Deliver writes the payload to W.
func (d WriterDeliverer) Deliver(ctx context.Context, payload []byte, _, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.W.Write(payload)
	return err
}
