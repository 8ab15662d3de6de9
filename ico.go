package svgkit

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
)

// The fixed parts of the icon container layout.
const (
	icoHeaderSize = 6
	icoEntrySize  = 16
	icoTypeIcon   = 1
	icoBitCount   = 32

	// MaxIcoSize is the largest edge an icon entry can describe.
	MaxIcoSize = 256
)

var defaultIcoSizes = [...]int{16, 32, 48}

// DefaultIcoSizes returns the sizes used for a favicon: 16, 32 and 48 pixels.
func DefaultIcoSizes() []int {
	sizes := defaultIcoSizes
	return sizes[:]
}

// IcoHeader is the 6 byte header of an icon container.
type IcoHeader struct {
	Reserved uint16
	Type     uint16
	Count    uint16
}

// IcoDirectoryEntry describes one embedded image. A width or height of 0 means 256.
type IcoDirectoryEntry struct {
	Width        uint8
	Height       uint8
	ColorCount   uint8
	Reserved     uint8
	Planes       uint16
	BitsPerPixel uint16
	Size         uint32
	Offset       uint32
}

// Dimensions returns the real pixel size described by the entry.
func (e IcoDirectoryEntry) Dimensions() (int, int) {
	w, h := int(e.Width), int(e.Height)
	if w == 0 {
		w = MaxIcoSize
	}
	if h == 0 {
		h = MaxIcoSize
	}
	return w, h
}

// IcoImage is a PNG encoded image to be embedded into an icon.
type IcoImage struct {
	Width  int
	Height int
	PNG    []byte
}

// IcoFile is a multi resolution icon: the header, the directory and the
// payloads in directory order.
type IcoFile struct {
	Header   IcoHeader
	Entries  []IcoDirectoryEntry
	Payloads [][]byte
}

// NewIcoFile lays out the images into an icon container. The payloads are
// stored back to back right after the directory, in the given order.
func NewIcoFile(images []IcoImage) (*IcoFile, error) {
	if len(images) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyImages, len(images))
	}

	ico := &IcoFile{
		Header: IcoHeader{
			Type:  icoTypeIcon,
			Count: uint16(len(images)),
		},
		Entries:  make([]IcoDirectoryEntry, 0, len(images)),
		Payloads: make([][]byte, 0, len(images)),
	}

	offset := uint64(icoHeaderSize + icoEntrySize*len(images))
	for _, img := range images {
		if img.Width < 1 || img.Width > MaxIcoSize || img.Height < 1 || img.Height > MaxIcoSize {
			return nil, fmt.Errorf("%w: %dx%d", ErrIcoSize, img.Width, img.Height)
		}
		size := uint64(len(img.PNG))
		if offset+size > math.MaxUint32 {
			return nil, errors.New("ico container exceeds 4GB")
		}
		ico.Entries = append(ico.Entries, IcoDirectoryEntry{
			// 256 wraps around to 0, as the format requires.
			Width:        uint8(img.Width),
			Height:       uint8(img.Height),
			Planes:       1,
			BitsPerPixel: icoBitCount,
			Size:         uint32(size),
			Offset:       uint32(offset),
		})
		ico.Payloads = append(ico.Payloads, img.PNG)
		offset += size
	}

	return ico, nil
}

// Len returns the size of the serialized container in bytes.
func (ico *IcoFile) Len() int {
	n := icoHeaderSize + icoEntrySize*len(ico.Entries)
	for _, p := range ico.Payloads {
		n += len(p)
	}
	return n
}

// WriteTo serializes the container in little endian byte order.
func (ico *IcoFile) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	if err := binary.Write(cw, binary.LittleEndian, ico.Header); err != nil {
		return cw.n, err
	}
	for _, e := range ico.Entries {
		if err := binary.Write(cw, binary.LittleEndian, e); err != nil {
			return cw.n, err
		}
	}
	for _, p := range ico.Payloads {
		if _, err := cw.Write(p); err != nil {
			return cw.n, err
		}
	}
	return cw.n, nil
}

// Bytes returns the serialized container.
func (ico *IcoFile) Bytes() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, ico.Len()))
	// Writing into a bytes.Buffer cannot fail.
	_, _ = ico.WriteTo(buf)
	return buf.Bytes()
}

// ParseIco reads back a container and checks that every payload lies
// inside the blob.
func ParseIco(data []byte) (*IcoFile, error) {
	r := bytes.NewReader(data)

	var ico IcoFile
	if err := binary.Read(r, binary.LittleEndian, &ico.Header); err != nil {
		return nil, fmt.Errorf("invalid ico header: %w", err)
	}
	if ico.Header.Reserved != 0 || ico.Header.Type != icoTypeIcon {
		return nil, errors.New("invalid ico header")
	}

	ico.Entries = make([]IcoDirectoryEntry, ico.Header.Count)
	if err := binary.Read(r, binary.LittleEndian, ico.Entries); err != nil {
		return nil, fmt.Errorf("invalid ico directory: %w", err)
	}
	for i, e := range ico.Entries {
		end := uint64(e.Offset) + uint64(e.Size)
		if end > uint64(len(data)) {
			return nil, fmt.Errorf("ico entry %d is out of bounds", i)
		}
		ico.Payloads = append(ico.Payloads, data[e.Offset:end])
	}
	return &ico, nil
}

// SurfaceFactory returns the PNG encoded rendering of a size x size icon.
type SurfaceFactory func(ctx context.Context, size int) ([]byte, error)

// BuildIco renders every size concurrently and joins the results, in the
// order of sizes, into one container. With no sizes DefaultIcoSizes is used.
func BuildIco(ctx context.Context, factory SurfaceFactory, sizes []int) (*IcoFile, error) {
	if len(sizes) == 0 {
		sizes = DefaultIcoSizes()
	}
	if len(sizes) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d", ErrTooManyImages, len(sizes))
	}
	for _, size := range sizes {
		if size < 1 || size > MaxIcoSize {
			return nil, fmt.Errorf("%w: %d", ErrIcoSize, size)
		}
	}

	images := make([]IcoImage, len(sizes))
	g, ctx := errgroup.WithContext(ctx)
	for i, size := range sizes {
		g.Go(func() error {
			data, err := factory(ctx, size)
			if err != nil {
				return fmt.Errorf("failed to render %dx%d icon: %w", size, size, err)
			}
			images[i] = IcoImage{Width: size, Height: size, PNG: data}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return NewIcoFile(images)
}

// ParseIcoSizes parses a comma separated list of icon sizes, e.g. "16,32,48".
func ParseIcoSizes(s string) ([]int, error) {
	var sizes []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > MaxIcoSize {
			return nil, fmt.Errorf("%w: %q", ErrIcoSize, f)
		}
		sizes = append(sizes, n)
	}
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: no sizes given", ErrIcoSize)
	}
	return sizes, nil
}

type countWriter struct {
	w io.Writer
	n int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
