package data

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// MNIST geometry.
const (
	MNISTRows    = 28
	MNISTCols    = 28
	MNISTClasses = 10
)

// LoadMNIST loads MNIST from the official IDX files in dir.
//
// Expected files in dir (each may also be gzip compressed with a .gz suffix):
//   - train-images-idx3-ubyte, train-labels-idx1-ubyte when train is true
//   - t10k-images-idx3-ubyte, t10k-labels-idx1-ubyte otherwise
//
// maxSamples limits the number of samples read (0 = all). Pixels are scaled
// to [0, 1].
func LoadMNIST(dir string, train bool, maxSamples int) (*Dataset, error) {
	prefix := "t10k"
	if train {
		prefix = "train"
	}
	imageFile := filepath.Join(dir, prefix+"-images-idx3-ubyte")
	labelFile := filepath.Join(dir, prefix+"-labels-idx1-ubyte")

	images, rows, cols, err := loadImages(imageFile, maxSamples)
	if err != nil {
		return nil, fmt.Errorf("failed to load images: %w", err)
	}
	labels, err := loadLabels(labelFile, maxSamples)
	if err != nil {
		return nil, fmt.Errorf("failed to load labels: %w", err)
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%w: %d images but %d labels", ErrInvalidIDX, len(images), len(labels))
	}

	ds := &Dataset{
		Images:  make([][]float64, len(images)),
		Labels:  make([]int, len(labels)),
		Rows:    rows,
		Cols:    cols,
		Classes: MNISTClasses,
	}
	for i, raw := range images {
		ds.Images[i] = scalePixels(raw)
		ds.Labels[i] = int(labels[i])
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return ds, nil
}

func loadImages(name string, limit int) ([][]byte, int, int, error) {
	f, err := openIDX(name)
	if err != nil {
		return nil, 0, 0, err
	}
	defer f.Close()
	return readIDXImages(f, limit)
}

func loadLabels(name string, limit int) ([]byte, error) {
	f, err := openIDX(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readIDXLabels(f, limit)
}

func scalePixels(raw []byte) []float64 {
	out := make([]float64, len(raw))
	for i, p := range raw {
		out[i] = float64(p) / 255
	}
	return out
}

// LoadMNISTCSV loads MNIST from a Kaggle-style CSV file.
//
//	label,pixel0,pixel1,...,pixel783
//	5,0,0,12,...,0
//
// The header row is skipped. maxSamples limits the rows read (0 = all).
func LoadMNISTCSV(filename string, maxSamples int) (*Dataset, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv file has no data rows")
	}
	records = records[1:]
	if maxSamples > 0 && len(records) > maxSamples {
		records = records[:maxSamples]
	}

	features := MNISTRows * MNISTCols
	ds := &Dataset{
		Images:  make([][]float64, len(records)),
		Labels:  make([]int, len(records)),
		Rows:    MNISTRows,
		Cols:    MNISTCols,
		Classes: MNISTClasses,
	}
	for i, record := range records {
		if len(record) != features+1 {
			return nil, fmt.Errorf("invalid record length at row %d: got %d, want %d", i+1, len(record), features+1)
		}
		label, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("invalid label at row %d: %w", i+1, err)
		}
		if label < 0 || label >= MNISTClasses {
			return nil, fmt.Errorf("row %d: %w: %d", i+1, ErrLabelOutOfRange, label)
		}
		ds.Labels[i] = label

		img := make([]float64, features)
		for j := range img {
			pixel, err := strconv.Atoi(record[j+1])
			if err != nil {
				return nil, fmt.Errorf("invalid pixel at row %d, col %d: %w", i+1, j+1, err)
			}
			if pixel < 0 || pixel > 255 {
				return nil, fmt.Errorf("pixel out of range at row %d, col %d: %d", i+1, j+1, pixel)
			}
			img[j] = float64(pixel) / 255
		}
		ds.Images[i] = img
	}
	return ds, nil
}
