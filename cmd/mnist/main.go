package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"github.com/klauspost/cpuid/v2"

	"github.com/FlavioCFOliveira/backprop/internal/config"
	"github.com/FlavioCFOliveira/backprop/internal/data"
	"github.com/FlavioCFOliveira/backprop/internal/net"
	"github.com/FlavioCFOliveira/backprop/internal/trainer"
)

// MNIST digit classification with a 784-1024-2048-10 sigmoid network
// trained by plain gradient descent.
func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults when empty)")
	dataDir := flag.String("data", "", "Override MNIST directory")
	epochs := flag.Int("epochs", 0, "Number of epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	lr := flag.Float64("lr", 0, "Learning rate")
	seed := flag.Uint64("seed", 0, "PRNG seed")
	synthetic := flag.Bool("synthetic", false, "Train on generated data instead of MNIST")
	save := flag.String("save", "", "Save the best model to this file")
	plotPath := flag.String("plot", "", "Write the loss curves to this image")
	csvPath := flag.String("csv", "", "Log epoch stats to this CSV file")

	flag.Parse()


	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}

	cfg.ApplyOverrides(config.Overrides{
		DataDir:      *dataDir,
		Synthetic:    *synthetic,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		LearningRate: *lr,
		Seed:         explicitFlag(flag.CommandLine, "seed", seed),
		Checkpoint:   *save,
		CSVLog:       *csvPath,
		Plot:         *plotPath,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("cpu=%q physical_cores=%d logical_cores=%d avx2=%t avx512=%t",
		cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cpuid.CPU.LogicalCores,
		cpuid.CPU.Supports(cpuid.AVX2), cpuid.CPU.Supports(cpuid.AVX512F))

	trainSet, validSet, err := loadData(cfg)
	if err != nil {
		log.Fatalf("failed to load data: %v", err)
	}
	log.Printf("train_samples=%d valid_samples=%d synthetic=%t", trainSet.Len(), validSet.Len(), cfg.Synthetic)

	model, err := net.New(cfg.Net())
	if err != nil {
		log.Fatalf("failed to build model: %v", err)
	}
	model.Summary(os.Stdout)

	train, err := data.NewIterator(trainSet, cfg.BatchSize, cfg.Shuffle, cfg.Seed)
	if err != nil {
		log.Fatal(err)
	}
	valid, err := data.NewIterator(validSet, cfg.BatchSize, false, 0)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("batch_size=%d train_batches=%d valid_batches=%d", cfg.BatchSize, train.NumBatches(), valid.NumBatches())

	callbacks := []trainer.Callback{trainer.Logger{Interval: cfg.LogEvery}}
	if cfg.CSVLog != "" {
		callbacks = append(callbacks, trainer.NewCSVLogger(cfg.CSVLog, false))
	}
	if cfg.EarlyStopping > 0 {
		es := trainer.NewEarlyStopping(cfg.EarlyStopping, 0)
		es.Monitor = trainer.MonitorValidLoss
		callbacks = append(callbacks, es)
	}
	var checkpoint *trainer.ModelCheckpoint
	if cfg.Checkpoint != "" {
		mc := trainer.NewModelCheckpoint(cfg.Checkpoint)
		checkpoint = mc
		mc.Monitor = trainer.MonitorValidLoss
		callbacks = append(callbacks, mc)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hist, err := trainer.Run(ctx, model, train, valid, trainer.Options{
		Epochs:    cfg.Epochs,
		Callbacks: callbacks,
	})
	switch {
	case errors.Is(err, context.Canceled):
		log.Printf("interrupted after epochs=%d", len(hist.Epochs))
	case err != nil:
		log.Fatalf("training failed: %v", err)
	}
	if err := checkpointError(checkpoint); err != nil {
		log.Fatal(err)
	}

	if cfg.Plot != "" && len(hist.Epochs) > 0 {
		if err := hist.Plot(cfg.Plot); err != nil {
			log.Printf("plot error=%q", err)
		} else {
			log.Printf("plot file=%s", cfg.Plot)
		}
	}

	if last, ok := hist.Last(); ok && last.HasValidation {
		fmt.Printf("\nFinal Validation Accuracy: %.1f%%\n", last.ValidAccuracy*100)
	}
	showPredictions(model, validSet, 10)
}

// explicitFlag returns v only if the named flag was set on the command line,
// so zero values given explicitly still override the config file.
func explicitFlag[T any](fs *flag.FlagSet, name string, v *T) *T {
	var set bool
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if !set {
		return nil
	}
	return v
}

// checkpointError reports a save that failed during training.
func checkpointError(mc *trainer.ModelCheckpoint) error {
	if mc == nil || mc.Err == nil {
		return nil
	}
	return fmt.Errorf("failed to save checkpoint %s: %w", mc.Filename, mc.Err)
}

// loadData returns the training and validation sets. Without a validation
// split the MNIST test set is used for validation.
func loadData(cfg *config.Config) (*data.Dataset, *data.Dataset, error) {
	var trainSet, validSet *data.Dataset
	if cfg.Synthetic {
		rows, cols := imageShape(cfg.InputSize)
		all, err := data.Synthetic(cfg.SyntheticSamples, rows, cols, cfg.OutputSize, cfg.Seed)
		if err != nil {
			return nil, nil, err
		}
		split := cfg.ValidationSplit
		if split == 0 {
			split = 0.2
		}
		trainSet, validSet = all.Split(int(float64(all.Len()) * split))
	} else {
		var err error
		if trainSet, err = data.LoadMNIST(cfg.DataDir, true, cfg.MaxSamples); err != nil {
			return nil, nil, err
		}
		if cfg.ValidationSplit > 0 {
			trainSet, validSet = trainSet.Split(int(float64(trainSet.Len()) * cfg.ValidationSplit))
		} else if validSet, err = data.LoadMNIST(cfg.DataDir, false, cfg.MaxSamples); err != nil {
			return nil, nil, err
		}
	}

	if trainSet.Features() != cfg.InputSize {
		return nil, nil, fmt.Errorf("images have %d pixels but input_size is %d", trainSet.Features(), cfg.InputSize)
	}
	if trainSet.Classes != cfg.OutputSize {
		return nil, nil, fmt.Errorf("data has %d classes but output_size is %d", trainSet.Classes, cfg.OutputSize)
	}
	if trainSet.Len() == 0 || validSet.Len() == 0 {
		return nil, nil, fmt.Errorf("empty split: %d train, %d valid samples", trainSet.Len(), validSet.Len())
	}
	return trainSet, validSet, nil
}

// imageShape picks a square image when n is a perfect square and a single
// row otherwise.
func imageShape(n int) (rows, cols int) {
	side := int(math.Sqrt(float64(n)))
	if side*side == n {
		return side, side
	}
	return 1, n
}

func showPredictions(model *net.Classifier, ds *data.Dataset, n int) {
	n = min(n, ds.Len())
	if n == 0 {
		return
	}
	x, _, err := data.Preprocess(data.Batch{Images: ds.Images[:n], Labels: ds.Labels[:n]}, ds.Classes)
	if err != nil {
		log.Printf("predictions error=%q", err)
		return
	}
	model.EnterEvaluationMode()
	pred, err := model.Predict(x)
	if err != nil {
		log.Printf("predictions error=%q", err)
		return
	}

	fmt.Println("\nSample Predictions:")
	for i, p := range pred {
		match := "✓"
		if p != ds.Labels[i] {
			match = "✗"
		}
		fmt.Printf("  %s True=%d, Predicted=%d\n", match, ds.Labels[i], p)
	}
}
