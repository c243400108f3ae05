package main

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// Fixed perceptual band edges in Hz. Bass starts at the bottom bin and
// treble runs to nyquist so the three bands partition the spectrum with
// no gap and no overlap.
const (
	bassMidHz    = 250.0
	midTrebleHz  = 2000.0
	speechLowHz  = 300.0
	speechHighHz = 3400.0
)

// FeatureSnapshot is one immutable digest of the capture stream. All
// scalars are in [0,1].
type FeatureSnapshot struct {
	Amplitude   float64
	Bass        float64
	Mid         float64
	Treble      float64
	VoiceActive bool
}

type ExtractorConfig struct {
	SampleRate     int
	FFTSize        int
	Smoothing      float64
	VoiceThreshold float64
	UpdateInterval time.Duration
}

// CaptureOpener acquires the underlying audio device. It is called once
// per Start so a failed acquisition can be retried later.
type CaptureOpener func() (AudioSource, error)

// FeatureExtractor runs a rate-capped analysis loop over a capture source
// and publishes the latest snapshot through an atomic pointer. Readers on
// any goroutine get a complete snapshot or nil, never a partial one.
type FeatureExtractor struct {
	cfg  ExtractorConfig
	open CaptureOpener
	an   *Analyser

	bassEnd, midEnd int
	vadLo, vadHi    int

	threshold atomic.Uint64
	latest    atomic.Pointer[FeatureSnapshot]

	mu     sync.Mutex
	source AudioSource
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewFeatureExtractor(cfg ExtractorConfig, open CaptureOpener) (*FeatureExtractor, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, cfg.SampleRate)
	}
	if cfg.VoiceThreshold < 0 {
		return nil, fmt.Errorf("%w: voice threshold %.3f", ErrInvalidConfig, cfg.VoiceThreshold)
	}
	if cfg.UpdateInterval <= 0 {
		return nil, fmt.Errorf("%w: update interval %s", ErrInvalidConfig, cfg.UpdateInterval)
	}
	if cfg.Smoothing < 0 || cfg.Smoothing >= 1 {
		return nil, fmt.Errorf("%w: smoothing %.3f outside [0,1)", ErrInvalidConfig, cfg.Smoothing)
	}

	an, err := NewAnalyser(cfg.SampleRate, cfg.FFTSize, cfg.Smoothing)
	if err != nil {
		return nil, err
	}

	fe := &FeatureExtractor{
		cfg:  cfg,
		open: open,
		an:   an,
	}
	fe.bassEnd, fe.midEnd = bandEdges(cfg.SampleRate, an.BinCount())
	fe.vadLo, fe.vadHi = speechBand(cfg.SampleRate, an.BinCount())
	fe.threshold.Store(math.Float64bits(cfg.VoiceThreshold))
	return fe, nil
}

// Start acquires the capture source and begins the analysis loop. It
// reports ErrCaptureUnavailable when the device cannot be opened; no
// snapshots are produced in that case.
func (fe *FeatureExtractor) Start() error {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	if fe.source != nil {
		return nil
	}

	src, err := fe.open()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptureUnavailable, err)
	}

	fe.source = src
	fe.done = make(chan struct{})
	fe.wg.Add(1)
	go fe.loop(src, fe.done)
	return nil
}

// Stop halts the loop and releases the capture source. Safe to call more
// than once; a stopped extractor can be started again.
func (fe *FeatureExtractor) Stop() {
	fe.mu.Lock()
	src := fe.source
	done := fe.done
	fe.source = nil
	fe.done = nil
	fe.mu.Unlock()

	if src == nil {
		return
	}
	close(done)
	fe.wg.Wait()
	src.Close()
}

// Latest returns the most recent snapshot, or nil when none has been
// produced yet. The caller must treat the snapshot as read-only.
func (fe *FeatureExtractor) Latest() *FeatureSnapshot {
	return fe.latest.Load()
}

func (fe *FeatureExtractor) VoiceThreshold() float64 {
	return math.Float64frombits(fe.threshold.Load())
}

// SetVoiceThreshold adjusts the live threshold; negative values are ignored.
func (fe *FeatureExtractor) SetVoiceThreshold(v float64) {
	if v < 0 {
		return
	}
	fe.threshold.Store(math.Float64bits(v))
}

// Ticks the extractor missed (the loop runs behind a ticker, so they are
// coalesced rather than queued) simply produce fewer snapshots.
func (fe *FeatureExtractor) loop(src AudioSource, done chan struct{}) {
	defer fe.wg.Done()
	ticker := time.NewTicker(fe.cfg.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			fe.latest.Store(fe.digest(src.Read()))
		}
	}
}

// digest performs one atomic extraction over an already-buffered block of
// samples and returns the finished snapshot.
func (fe *FeatureExtractor) digest(samples []float64) *FeatureSnapshot {
	fe.an.Process(samples)
	freq := fe.an.FrequencyMagnitudes()
	td := fe.an.TimeDomain()

	snap := &FeatureSnapshot{
		Amplitude: rmsAmplitude(td),
		Bass:      bandMean(freq, 0, fe.bassEnd),
		Mid:       bandMean(freq, fe.bassEnd, fe.midEnd),
		Treble:    bandMean(freq, fe.midEnd, len(freq)),
	}
	speech := bandMean(freq, fe.vadLo, fe.vadHi)
	snap.VoiceActive = speech > fe.VoiceThreshold()
	return snap
}

// rmsAmplitude is the root-mean-square of mean-centered samples, clamped
// to [0,1].
func rmsAmplitude(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	mean := 0.0
	for _, s := range samples {
		mean += s
	}
	mean /= float64(len(samples))

	sum := 0.0
	for _, s := range samples {
		d := s - mean
		sum += d * d
	}
	return clamp(math.Sqrt(sum/float64(len(samples))), 0, 1)
}

func bandMean(freq []float64, lo, hi int) float64 {
	if hi <= lo {
		return 0
	}
	sum := 0.0
	for i := lo; i < hi; i++ {
		sum += freq[i]
	}
	return clamp(sum/float64(hi-lo), 0, 1)
}

func hzToBin(hz float64, sampleRate, binCount int) int {
	binWidth := float64(sampleRate) / 2 / float64(binCount)
	bin := int(hz / binWidth)
	if bin < 0 {
		bin = 0
	}
	if bin > binCount {
		bin = binCount
	}
	return bin
}

// bandEdges returns the exclusive end bins of the bass and mid bands.
// Bass covers [0, bassEnd), mid [bassEnd, midEnd), treble [midEnd, binCount).
func bandEdges(sampleRate, binCount int) (bassEnd, midEnd int) {
	bassEnd = hzToBin(bassMidHz, sampleRate, binCount)
	midEnd = hzToBin(midTrebleHz, sampleRate, binCount)
	if bassEnd < 1 {
		bassEnd = 1
	}
	if midEnd < bassEnd {
		midEnd = bassEnd
	}
	if midEnd > binCount {
		midEnd = binCount
	}
	return bassEnd, midEnd
}

// speechBand is the independent voice-activity bin range; it may overlap
// the perceptual bands.
func speechBand(sampleRate, binCount int) (lo, hi int) {
	lo = hzToBin(speechLowHz, sampleRate, binCount)
	hi = hzToBin(speechHighHz, sampleRate, binCount)
	if hi <= lo {
		hi = lo + 1
	}
	if hi > binCount {
		hi = binCount
	}
	return lo, hi
}
