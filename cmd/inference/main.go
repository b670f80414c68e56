// Package main evaluates a saved classifier on the MNIST test set.
// Run with: go run ./cmd/inference -model model.gob -data data
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/FlavioCFOliveira/backprop/internal/data"
	"github.com/FlavioCFOliveira/backprop/internal/net"
	"github.com/FlavioCFOliveira/backprop/internal/trainer"
)

func main() {
	modelPath := flag.String("model", "model.gob", "Classifier saved by cmd/mnist")
	dataDir := flag.String("data", "data", "MNIST directory with the t10k IDX files")
	csvPath := flag.String("csv", "", "Kaggle-style MNIST CSV to use instead of the IDX files")
	maxSamples := flag.Int("max-samples", 0, "Evaluate at most this many samples (0 = all)")
	batchSize := flag.Int("batch-size", 256, "Batch size")

	flag.Parse()

	model, err := net.Load(*modelPath)
	if err != nil {
		log.Fatalf("failed to load model: %v", err)
	}
	model.Summary(os.Stdout)

	var ds *data.Dataset
	if *csvPath != "" {
		ds, err = data.LoadMNISTCSV(*csvPath, *maxSamples)
	} else {
		ds, err = data.LoadMNIST(*dataDir, false, *maxSamples)
	}
	if err != nil {
		log.Fatalf("failed to load data: %v", err)
	}

	it, err := data.NewIterator(ds, *batchSize, false, 0)
	if err != nil {
		log.Fatal(err)
	}
	loss, acc, err := trainer.Evaluate(context.Background(), model, it)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	log.Printf("samples=%d loss=%.4f accuracy=%.4f", ds.Len(), loss, acc)

	perClass, err := classAccuracy(model, ds, *batchSize)
	if err != nil {
		log.Fatalf("evaluation failed: %v", err)
	}
	fmt.Println("\nPer-class accuracy:")
	for class, a := range perClass {
		fmt.Printf("  %d: %.1f%%\n", class, a*100)
	}
}

// classAccuracy returns the accuracy of model on the samples of each class.
func classAccuracy(model *net.Classifier, ds *data.Dataset, batchSize int) ([]float64, error) {
	correct := make([]int, ds.Classes)
	total := make([]int, ds.Classes)

	it, err := data.NewIterator(ds, batchSize, false, 0)
	if err != nil {
		return nil, err
	}
	for b, ok := it.Next(); ok; b, ok = it.Next() {
		x, _, err := data.Preprocess(b, ds.Classes)
		if err != nil {
			return nil, err
		}
		pred, err := model.Predict(x)
		if err != nil {
			return nil, err
		}
		for j, p := range pred {
			total[b.Labels[j]]++
			if p == b.Labels[j] {
				correct[b.Labels[j]]++
			}
		}
	}

	out := make([]float64, ds.Classes)
	for c := range out {
		if total[c] > 0 {
			out[c] = float64(correct[c]) / float64(total[c])
		}
	}
	return out, nil
}
