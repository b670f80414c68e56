package data

import (
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// IDX magic numbers for unsigned byte images and labels.
const (
	imageMagic = 0x00000803 // 2051
	labelMagic = 0x00000801 // 2049
)

// maxImageSide bounds the rows and cols of an IDX image header.
const maxImageSide = 1 << 12

// ErrInvalidIDX is returned for a malformed IDX stream.
var ErrInvalidIDX = errors.New("invalid IDX data")

type labelHeader struct{ Magic, Num uint32 }

type imageHeader struct{ Magic, Num, Rows, Cols uint32 }

// openIDX opens name, or name+".gz" if only the compressed file exists.
func openIDX(name string) (io.ReadCloser, error) {
	f, err := os.Open(name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	f, gzErr := os.Open(name + ".gz")
	if gzErr != nil {
		return nil, err
	}
	zr, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s.gz: %w", name, err)
	}
	return &gzipFile{Reader: zr, file: f}, nil
}

type gzipFile struct {
	*gzip.Reader
	file *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if cerr := g.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// readIDXImages reads at most limit images (all if limit <= 0).
//
// IDX file format for images:
//
//	magic number: 0x00000803 (2051)
//	number of images: 4 bytes
//	number of rows: 4 bytes
//	number of cols: 4 bytes
//	pixel data: unsigned bytes (0-255)
func readIDXImages(r io.Reader, limit int) (images [][]byte, rows, cols int, err error) {
	var head imageHeader
	if err = binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, 0, 0, fmt.Errorf("%w: image header: %v", ErrInvalidIDX, err)
	}
	if head.Magic != imageMagic {
		return nil, 0, 0, fmt.Errorf("%w: image magic %d, want %d", ErrInvalidIDX, head.Magic, imageMagic)
	}
	if head.Rows == 0 || head.Cols == 0 || head.Rows > maxImageSide || head.Cols > maxImageSide {
		return nil, 0, 0, fmt.Errorf("%w: image size %dx%d", ErrInvalidIDX, head.Rows, head.Cols)
	}

	n := int(head.Num)
	if limit > 0 && n > limit {
		n = limit
	}
	rows, cols = int(head.Rows), int(head.Cols)
	// Grow while reading: the header count is not trusted for allocation.
	for i := 0; i < n; i++ {
		img := make([]byte, rows*cols)
		if _, err = io.ReadFull(r, img); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, 0, 0, fmt.Errorf("failed to read image %d: %w", i, err)
		}
		images = append(images, img)
	}
	return images, rows, cols, nil
}

// readIDXLabels reads at most limit labels (all if limit <= 0).
//
// IDX file format for labels:
//
//	magic number: 0x00000801 (2049)
//	number of labels: 4 bytes
//	label data: unsigned bytes
func readIDXLabels(r io.Reader, limit int) ([]byte, error) {
	var head labelHeader
	if err := binary.Read(r, binary.BigEndian, &head); err != nil {
		return nil, fmt.Errorf("%w: label header: %v", ErrInvalidIDX, err)
	}
	if head.Magic != labelMagic {
		return nil, fmt.Errorf("%w: label magic %d, want %d", ErrInvalidIDX, head.Magic, labelMagic)
	}

	n := int64(head.Num)
	if limit > 0 && n > int64(limit) {
		n = int64(limit)
	}
	labels, err := io.ReadAll(io.LimitReader(r, n))
	if err != nil {
		return nil, fmt.Errorf("failed to read labels: %w", err)
	}
	if int64(len(labels)) != n {
		return nil, fmt.Errorf("failed to read labels: %w: got %d of %d", io.ErrUnexpectedEOF, len(labels), n)
	}
	return labels, nil
}
