package main

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// fakeSource hands out a fixed buffer and records its lifecycle.
type fakeSource struct {
	mu      sync.Mutex
	samples []float64
	closed  bool
}

func (fs *fakeSource) Read() []float64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	out := make([]float64, len(fs.samples))
	copy(out, fs.samples)
	return out
}

func (fs *fakeSource) Close() {
	fs.mu.Lock()
	fs.closed = true
	fs.mu.Unlock()
}

func (fs *fakeSource) isClosed() bool {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.closed
}

func testExtractorConfig() ExtractorConfig {
	return ExtractorConfig{
		SampleRate:     16000,
		FFTSize:        512,
		Smoothing:      0, // no temporal smoothing: one digest is exact
		VoiceThreshold: 0.01,
		UpdateInterval: 16 * time.Millisecond,
	}
}

func newTestExtractor(t *testing.T, cfg ExtractorConfig, src AudioSource) *FeatureExtractor {
	t.Helper()
	fe, err := NewFeatureExtractor(cfg, func() (AudioSource, error) { return src, nil })
	if err != nil {
		t.Fatalf("NewFeatureExtractor: %v", err)
	}
	return fe
}

// sineAtBin generates a full buffer of bin-centered sine so all its energy
// lands in a single FFT bin (no leakage smear across bands).
func sineAtBin(bin, fftSize, sampleRate int, amp float64) []float64 {
	binWidth := float64(sampleRate) / 2 / float64(fftSize/2)
	freq := float64(bin) * binWidth
	samples := make([]float64, fftSize)
	for i := range samples {
		samples[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return samples
}

func addBuffers(bufs ...[]float64) []float64 {
	out := make([]float64, len(bufs[0]))
	for _, b := range bufs {
		for i, v := range b {
			out[i] += v
		}
	}
	return out
}

func TestBandEdgesPartitionSpectrum(t *testing.T) {
	for _, fftSize := range []int{32, 64, 256, 1024, 4096} {
		for _, rate := range []int{8000, 16000, 44100, 48000} {
			binCount := fftSize / 2
			bassEnd, midEnd := bandEdges(rate, binCount)

			if bassEnd < 1 || bassEnd > binCount {
				t.Errorf("fft=%d rate=%d: bassEnd %d out of range", fftSize, rate, bassEnd)
			}
			if midEnd < bassEnd || midEnd > binCount {
				t.Errorf("fft=%d rate=%d: midEnd %d out of range (bassEnd %d)", fftSize, rate, midEnd, bassEnd)
			}

			// Contiguous partition: every bin owned exactly once.
			covered := bassEnd + (midEnd - bassEnd) + (binCount - midEnd)
			if covered != binCount {
				t.Errorf("fft=%d rate=%d: bands cover %d of %d bins", fftSize, rate, covered, binCount)
			}
		}
	}
}

func TestRMSAmplitudeBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 50; trial++ {
		buf := make([]float64, 256)
		for i := range buf {
			buf[i] = rng.Float64()*2 - 1
		}
		got := rmsAmplitude(buf)
		if got < 0 || got > 1 {
			t.Fatalf("trial %d: amplitude %f outside [0,1]", trial, got)
		}
	}

	if got := rmsAmplitude(nil); got != 0 {
		t.Errorf("empty buffer: amplitude = %f, want 0", got)
	}
}

func TestSilentBufferYieldsZeroFeatures(t *testing.T) {
	cfg := testExtractorConfig()
	fe := newTestExtractor(t, cfg, &fakeSource{})

	snap := fe.digest(make([]float64, cfg.FFTSize))

	if snap.Amplitude != 0 {
		t.Errorf("Amplitude = %f, want 0", snap.Amplitude)
	}
	if snap.Bass != 0 || snap.Mid != 0 || snap.Treble != 0 {
		t.Errorf("band energies = (%f, %f, %f), want all 0", snap.Bass, snap.Mid, snap.Treble)
	}
	if snap.VoiceActive {
		t.Error("VoiceActive = true for silence")
	}
}

func TestSpeechBandEnergyTriggersVoiceActivity(t *testing.T) {
	cfg := testExtractorConfig()
	fe := newTestExtractor(t, cfg, &fakeSource{})

	// Energy concentrated inside 300-3400 Hz: bins 16/32/64/96 at 16 kHz
	// with fftSize 512 are 500/1000/2000/3000 Hz.
	buf := addBuffers(
		sineAtBin(16, cfg.FFTSize, cfg.SampleRate, 0.5),
		sineAtBin(32, cfg.FFTSize, cfg.SampleRate, 0.5),
		sineAtBin(64, cfg.FFTSize, cfg.SampleRate, 0.5),
		sineAtBin(96, cfg.FFTSize, cfg.SampleRate, 0.5),
	)
	snap := fe.digest(buf)

	if !snap.VoiceActive {
		t.Error("VoiceActive = false for full-scale speech-band energy")
	}
	if snap.Amplitude <= 0 {
		t.Errorf("Amplitude = %f, want > 0", snap.Amplitude)
	}
}

func TestSinePlacementLandsInExpectedBand(t *testing.T) {
	cfg := testExtractorConfig()

	cases := []struct {
		name string
		bin  int // 16 kHz, fftSize 512: bin width 31.25 Hz
		want string
	}{
		{"bass", 4, "bass"},       // 125 Hz
		{"mid", 32, "mid"},        // 1000 Hz
		{"treble", 128, "treble"}, // 4000 Hz
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fe := newTestExtractor(t, cfg, &fakeSource{})
			snap := fe.digest(sineAtBin(tc.bin, cfg.FFTSize, cfg.SampleRate, 1.0))

			dominant := "bass"
			if snap.Mid > snap.Bass && snap.Mid > snap.Treble {
				dominant = "mid"
			}
			if snap.Treble > snap.Bass && snap.Treble > snap.Mid {
				dominant = "treble"
			}
			if dominant != tc.want {
				t.Errorf("dominant band = %s (%f/%f/%f), want %s",
					dominant, snap.Bass, snap.Mid, snap.Treble, tc.want)
			}
		})
	}
}

func TestExtractorRejectsInvalidConfiguration(t *testing.T) {
	base := testExtractorConfig()

	mutations := []struct {
		name   string
		mutate func(*ExtractorConfig)
	}{
		{"zero fft", func(c *ExtractorConfig) { c.FFTSize = 0 }},
		{"non power of two fft", func(c *ExtractorConfig) { c.FFTSize = 100 }},
		{"tiny fft", func(c *ExtractorConfig) { c.FFTSize = 16 }},
		{"smoothing at one", func(c *ExtractorConfig) { c.Smoothing = 1.0 }},
		{"negative threshold", func(c *ExtractorConfig) { c.VoiceThreshold = -0.1 }},
		{"zero interval", func(c *ExtractorConfig) { c.UpdateInterval = 0 }},
		{"zero sample rate", func(c *ExtractorConfig) { c.SampleRate = 0 }},
	}

	for _, m := range mutations {
		t.Run(m.name, func(t *testing.T) {
			cfg := base
			m.mutate(&cfg)
			_, err := NewFeatureExtractor(cfg, func() (AudioSource, error) { return &fakeSource{}, nil })
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("err = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestStartReportsCaptureUnavailable(t *testing.T) {
	fe, err := NewFeatureExtractor(testExtractorConfig(), func() (AudioSource, error) {
		return nil, fmt.Errorf("device denied")
	})
	if err != nil {
		t.Fatalf("NewFeatureExtractor: %v", err)
	}

	if err := fe.Start(); !errors.Is(err, ErrCaptureUnavailable) {
		t.Fatalf("Start err = %v, want ErrCaptureUnavailable", err)
	}
	if fe.Latest() != nil {
		t.Error("Latest() produced a snapshot after failed acquisition")
	}
}

func TestStopReleasesCaptureSource(t *testing.T) {
	src := &fakeSource{samples: make([]float64, 512)}
	fe := newTestExtractor(t, testExtractorConfig(), src)

	if err := fe.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	fe.Stop()

	if !src.isClosed() {
		t.Error("Stop did not release the capture source")
	}
	// Stop again is a no-op.
	fe.Stop()
}

func TestLoopPublishesSnapshots(t *testing.T) {
	cfg := testExtractorConfig()
	cfg.UpdateInterval = 2 * time.Millisecond
	src := &fakeSource{samples: sineAtBin(32, cfg.FFTSize, cfg.SampleRate, 0.8)}
	fe := newTestExtractor(t, cfg, src)

	if err := fe.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer fe.Stop()

	deadline := time.Now().Add(500 * time.Millisecond)
	for fe.Latest() == nil && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	snap := fe.Latest()
	if snap == nil {
		t.Fatal("no snapshot published")
	}
	if snap.Mid <= 0 {
		t.Errorf("Mid = %f, want > 0 for a 1 kHz tone", snap.Mid)
	}
}

func TestSetVoiceThresholdLive(t *testing.T) {
	fe := newTestExtractor(t, testExtractorConfig(), &fakeSource{})

	fe.SetVoiceThreshold(0.5)
	if got := fe.VoiceThreshold(); got != 0.5 {
		t.Errorf("VoiceThreshold = %f, want 0.5", got)
	}
	fe.SetVoiceThreshold(-1)
	if got := fe.VoiceThreshold(); got != 0.5 {
		t.Errorf("negative threshold accepted: %f", got)
	}
}
