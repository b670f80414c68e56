package trainer

import (
	"errors"
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	_ "gonum.org/v1/plot/vg/vgimg"
	_ "gonum.org/v1/plot/vg/vgsvg"
)

// Plot writes the loss curves to path. The image format follows the file
// extension (.png, .svg, .pdf, ...).
func (h *History) Plot(path string) error {
	if len(h.Epochs) == 0 {
		return errors.New("plot: empty history")
	}

	p := plot.New()
	p.Title.Text = "Cross entropy"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"
	p.Y.Min = 0
	p.Legend.Top = true
	p.Add(plotter.NewGrid())

	train := make(plotter.XYs, 0, len(h.Epochs))
	var valid plotter.XYs
	for _, s := range h.Epochs {
		train = append(train, plotter.XY{X: float64(s.Epoch), Y: s.TrainLoss})
		if s.HasValidation {
			valid = append(valid, plotter.XY{X: float64(s.Epoch), Y: s.ValidLoss})
		}
	}

	series := []struct {
		name string
		pts  plotter.XYs
	}{{"train", train}, {"valid", valid}}
	for i, s := range series {
		if len(s.pts) == 0 {
			continue
		}
		l, err := plotter.NewLine(s.pts)
		if err != nil {
			return fmt.Errorf("plot %s: %w", s.name, err)
		}
		l.Width = vg.Points(2)
		l.Color = plotutil.Color(i)
		p.Add(l)
		p.Legend.Add(s.name, l)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}
