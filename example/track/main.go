// Command track drives the constant-acceleration filter with a simulated
// trajectory and writes the truth, the measurements and the estimates as
// CSV and, optionally, a PNG plot.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"strconv"

	"github.com/mrfyo/matrix"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	kalman "github.com/SpynFayde/cakalman"
)

const (
	colTrueX = iota
	colTrueY
	colMeasX
	colMeasY
	numCols
)

// Sample is one step of a run.
type Sample struct {
	T        float64
	Truth    kalman.Position
	Measured kalman.Position
	Estimate kalman.Position
}

func main() {
	configPath := flag.String("config", "", "Path to a JSON filter config (defaults when empty)")
	steps := flag.Int("steps", 100, "Number of sampling intervals to simulate")
	seed := flag.Int64("seed", 1, "Random seed for the simulated trajectory")
	csvPath := flag.String("csv", "out.csv", "Output CSV path ('-' for stdout)")
	pngPath := flag.String("png", "", "Optional output PNG plot path")
	verbose := flag.Bool("verbose", false, "Log every predict/update step to stderr")
	flag.Parse()

	kalman.SetLogWriters(os.Stderr, os.Stderr, nil)
	if *verbose {
		kalman.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	}

	params := kalman.DefaultParams()
	if *configPath != "" {
		var err error
		params, err = kalman.LoadParams(*configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
	}

	kf, err := params.NewFilter()
	if err != nil {
		log.Fatalf("create filter: %v", err)
	}

	rng := rand.New(rand.NewSource(*seed))
	track := CreateTrack(rng, *steps, params)

	samples, err := Run(kf, params.Dt, track)
	if err != nil {
		log.Fatalf("run filter: %v", err)
	}

	if err := writeCSVFile(*csvPath, samples); err != nil {
		log.Fatalf("write csv: %v", err)
	}
	if *pngPath != "" {
		if err := SavePlot(*pngPath, samples); err != nil {
			log.Fatalf("save plot: %v", err)
		}
	}
	log.Printf("tracked %d steps (dt=%g)", len(samples), params.Dt)
}

// CreateTrack simulates n steps of the filter's motion model: constant
// acceleration perturbed by white acceleration noise, observed with
// Gaussian measurement noise. Each row holds true x, true y, measured x,
// measured y.
func CreateTrack(rng *rand.Rand, n int, p kalman.Params) (Z matrix.Matrix) {
	Z = matrix.Zeros(matrix.Shape{Row: n, Col: numCols})

	dt := p.Dt
	var x, y, vx, vy float64
	for i := 0; i < n; i++ {
		ax := p.AccelX + rng.NormFloat64()*p.AccelerationStd
		ay := p.AccelY + rng.NormFloat64()*p.AccelerationStd
		x += vx*dt + ax*dt*dt/2
		y += vy*dt + ay*dt*dt/2
		vx += ax * dt
		vy += ay * dt
		Z.Set(i, colTrueX, x)
		Z.Set(i, colTrueY, y)
		Z.Set(i, colMeasX, x+rng.NormFloat64()*p.XMeasurementStd)
		Z.Set(i, colMeasY, y+rng.NormFloat64()*p.YMeasurementStd)
	}
	return
}

// Run alternates predict and update once per row of track, dt apart.
func Run(kf kalman.Estimator, dt float64, track matrix.Matrix) ([]Sample, error) {
	samples := make([]Sample, 0, track.Row)
	for i := 0; i < track.Row; i++ {
		z := kalman.Position{X: track.Get(i, colMeasX), Y: track.Get(i, colMeasY)}

		kf.Predict()
		est, err := kf.Update(z)
		if err != nil {
			return samples, fmt.Errorf("step %d: %w", i, err)
		}
		samples = append(samples, Sample{
			T:        float64(i+1) * dt,
			Truth:    kalman.Position{X: track.Get(i, colTrueX), Y: track.Get(i, colTrueY)},
			Measured: z,
			Estimate: est,
		})
	}
	return samples, nil
}

func writeCSVFile(path string, samples []Sample) error {
	if path == "-" {
		return WriteCSV(os.Stdout, samples)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, samples); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes one header row and one row per sample.
func WriteCSV(w io.Writer, samples []Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"t", "true_x", "true_y", "meas_x", "meas_y", "est_x", "est_y"}); err != nil {
		return err
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', 5, 64) }
	for _, s := range samples {
		row := []string{
			ff(s.T),
			ff(s.Truth.X), ff(s.Truth.Y),
			ff(s.Measured.X), ff(s.Measured.Y),
			ff(s.Estimate.X), ff(s.Estimate.Y),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SavePlot renders the three trajectories in the plane to a PNG file.
func SavePlot(path string, samples []Sample) error {
	truth := make(plotter.XYs, len(samples))
	meas := make(plotter.XYs, len(samples))
	est := make(plotter.XYs, len(samples))
	for i, s := range samples {
		truth[i] = plotter.XY{X: s.Truth.X, Y: s.Truth.Y}
		meas[i] = plotter.XY{X: s.Measured.X, Y: s.Measured.Y}
		est[i] = plotter.XY{X: s.Estimate.X, Y: s.Estimate.Y}
	}

	p := plot.New()
	p.Title.Text = "Constant-acceleration Kalman tracking"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	if err := plotutil.AddLines(p, "truth", truth, "estimate", est); err != nil {
		return err
	}
	if err := plotutil.AddScatters(p, "measured", meas); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 5*vg.Inch, path)
}
