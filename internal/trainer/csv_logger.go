package trainer

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/FlavioCFOliveira/backprop/internal/net"
)

// CSVLogger logs training progress to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

var csvHeader = []string{"epoch", "train_loss", "valid_loss", "valid_acc", "data_ms", "compute_ms", "time_seconds"}

func (l *CSVLogger) OnTrainBegin(c *net.Classifier) {
	mode := os.O_CREATE | os.O_WRONLY
	if l.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(l.Filename, mode, 0644)
	if err != nil {
		log.Printf("csv_logger file=%s error=%q", l.Filename, err)
		return
	}
	l.file = file
	l.writer = csv.NewWriter(file)
	l.start = time.Now()

	// Write header if not appending or if file is empty
	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !l.Append) {
		l.writer.Write(csvHeader)
		l.writer.Flush()
	}
}

func (l *CSVLogger) OnEpochEnd(epoch int, stats EpochStats, c *net.Classifier) {
	if l.writer == nil {
		return
	}

	validLoss, validAcc := "", ""
	if stats.HasValidation {
		validLoss = fmt.Sprintf("%.6f", stats.ValidLoss)
		validAcc = fmt.Sprintf("%.4f", stats.ValidAccuracy)
	}
	record := []string{
		strconv.Itoa(epoch),
		fmt.Sprintf("%.6f", stats.TrainLoss),
		validLoss,
		validAcc,
		fmt.Sprintf("%.3f", stats.AvgDataMS),
		fmt.Sprintf("%.3f", stats.AvgComputeMS),
		fmt.Sprintf("%.2f", time.Since(l.start).Seconds()),
	}

	if err := l.writer.Write(record); err != nil {
		log.Printf("csv_logger file=%s error=%q", l.Filename, err)
	}
	l.writer.Flush()
}

func (l *CSVLogger) OnTrainEnd(c *net.Classifier) {
	if l.file != nil {
		l.writer.Flush()
		l.file.Close()
		l.file = nil
		l.writer = nil
	}
}
