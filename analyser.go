package main

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyser turns a raw sample feed into matched time-domain and
// frequency-domain buffers, in the manner of a Web-Audio analyser node:
// a Hann-windowed real FFT over the most recent fftSize samples, with
// magnitudes normalized to [0,1] and exponentially smoothed across calls
// by the smoothing time constant.
type Analyser struct {
	fftSize    int
	binCount   int
	smoothing  float64
	sampleRate float64

	fft       *fourier.FFT
	window    []float64
	winScale  float64
	ring      []float64
	windowed  []float64
	coeffs    []complex128
	freq      []float64
	timeBuf   []float64
	hasFrames bool
}

func NewAnalyser(sampleRate, fftSize int, smoothing float64) (*Analyser, error) {
	if err := validateFFTSize(fftSize); err != nil {
		return nil, err
	}

	window := make([]float64, fftSize)
	winSum := 0.0
	for i := range window {
		window[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(fftSize-1)))
		winSum += window[i]
	}

	return &Analyser{
		fftSize:    fftSize,
		binCount:   fftSize / 2,
		smoothing:  smoothing,
		sampleRate: float64(sampleRate),
		fft:        fourier.NewFFT(fftSize),
		window:     window,
		winScale:   2.0 / winSum,
		ring:       make([]float64, fftSize),
		windowed:   make([]float64, fftSize),
		coeffs:     make([]complex128, fftSize/2+1),
		freq:       make([]float64, fftSize/2),
		timeBuf:    make([]float64, fftSize/2),
	}, nil
}

func (a *Analyser) BinCount() int { return a.binCount }

// BinWidth is the frequency span of one bin in Hz: nyquist / binCount.
func (a *Analyser) BinWidth() float64 {
	return a.sampleRate / 2 / float64(a.binCount)
}

// Process folds the given samples into the analysis ring and recomputes
// both output buffers. An empty slice leaves the previous frame in place.
func (a *Analyser) Process(samples []float64) {
	if len(samples) == 0 && a.hasFrames {
		return
	}
	a.hasFrames = true

	if len(samples) >= a.fftSize {
		copy(a.ring, samples[len(samples)-a.fftSize:])
	} else {
		keep := a.fftSize - len(samples)
		copy(a.ring, a.ring[len(samples):len(samples)+keep])
		copy(a.ring[keep:], samples)
	}

	copy(a.timeBuf, a.ring[a.fftSize-a.binCount:])

	for i, s := range a.ring {
		a.windowed[i] = s * a.window[i]
	}
	a.fft.Coefficients(a.coeffs, a.windowed)

	for i := 0; i < a.binCount; i++ {
		mag := cmplx.Abs(a.coeffs[i]) * a.winScale
		if mag > 1 {
			mag = 1
		}
		a.freq[i] = a.smoothing*a.freq[i] + (1-a.smoothing)*mag
	}
}

// FrequencyMagnitudes returns the smoothed, normalized magnitude per bin.
// The slice is owned by the analyser and valid until the next Process call.
func (a *Analyser) FrequencyMagnitudes() []float64 { return a.freq }

// TimeDomain returns the most recent binCount samples, matching the
// frequency buffer in length.
func (a *Analyser) TimeDomain() []float64 { return a.timeBuf }
