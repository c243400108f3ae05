package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// AudioSource delivers the most recent block of mono samples in [-1,1].
// Read never blocks on the device; it returns whatever the source has
// already buffered.
type AudioSource interface {
	Read() []float64
	Close()
}

type PulseAudioCapture struct {
	cmd        *exec.Cmd
	reader     io.ReadCloser
	bufferSize int
	mu         sync.Mutex
	samples    []float64
	done       chan struct{}
}

func getMonitorSource() (string, error) {
	out, err := exec.Command("pactl", "get-default-sink").Output()
	if err != nil {
		return "", fmt.Errorf("cannot get default sink: %w", err)
	}
	sink := strings.TrimSpace(string(out))
	if sink == "" {
		return "", fmt.Errorf("no default sink found")
	}
	return sink + ".monitor", nil
}

func NewPulseAudioCapture(sampleRate, bufferSize int) (*PulseAudioCapture, error) {
	monitor, err := getMonitorSource()
	if err != nil {
		return nil, fmt.Errorf("failed to find monitor source: %w", err)
	}

	cmd := exec.Command("parec",
		"--format=float32le",
		fmt.Sprintf("--rate=%d", sampleRate),
		"--channels=1",
		fmt.Sprintf("--device=%s", monitor),
		"--latency-msec=25",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start parec (is pulseaudio/pipewire-pulse installed?): %w", err)
	}

	pac := &PulseAudioCapture{
		cmd:        cmd,
		reader:     stdout,
		bufferSize: bufferSize,
		samples:    make([]float64, bufferSize),
		done:       make(chan struct{}),
	}

	go pac.readLoop()
	return pac, nil
}

func (pac *PulseAudioCapture) readLoop() {
	buf := make([]byte, pac.bufferSize*4)
	for {
		select {
		case <-pac.done:
			return
		default:
		}

		n, err := io.ReadFull(pac.reader, buf)
		if err != nil {
			select {
			case <-pac.done:
				return
			case <-time.After(10 * time.Millisecond):
			}
			continue
		}

		numSamples := n / 4
		samples := make([]float64, numSamples)
		for i := 0; i < numSamples; i++ {
			bits := binary.LittleEndian.Uint32(buf[i*4 : i*4+4])
			samples[i] = float64(math.Float32frombits(bits))
		}

		pac.mu.Lock()
		pac.samples = samples
		pac.mu.Unlock()
	}
}

func (pac *PulseAudioCapture) Read() []float64 {
	pac.mu.Lock()
	defer pac.mu.Unlock()
	result := make([]float64, len(pac.samples))
	copy(result, pac.samples)
	return result
}

func (pac *PulseAudioCapture) Close() {
	select {
	case <-pac.done:
		return
	default:
		close(pac.done)
	}
	if pac.cmd != nil && pac.cmd.Process != nil {
		_ = pac.cmd.Process.Kill()
		_ = pac.cmd.Wait()
	}
}

// DemoVoice synthesizes speech-like audio: a harmonic stack over a ~140 Hz
// fundamental, band-limited to the telephone speech range, pulsed into
// phrases with silent gaps so the voice-activity path gets exercised.
type DemoVoice struct {
	sampleRate float64
	bufferSize int
	time       float64
	harmonics  []voiceHarmonic
}

type voiceHarmonic struct {
	mult float64
	amp  float64
	modF float64
}

func NewDemoVoice(sampleRate, bufferSize int) *DemoVoice {
	return &DemoVoice{
		sampleRate: float64(sampleRate),
		bufferSize: bufferSize,
		harmonics: []voiceHarmonic{
			{mult: 3, amp: 0.30, modF: 2.3},
			{mult: 4, amp: 0.45, modF: 3.1},
			{mult: 5, amp: 0.50, modF: 1.9},
			{mult: 7, amp: 0.40, modF: 2.7},
			{mult: 9, amp: 0.30, modF: 3.7},
			{mult: 12, amp: 0.22, modF: 1.4},
			{mult: 16, amp: 0.15, modF: 2.1},
			{mult: 21, amp: 0.08, modF: 4.2},
		},
	}
}

func (dv *DemoVoice) Read() []float64 {
	samples := make([]float64, dv.bufferSize)
	dt := 1.0 / dv.sampleRate
	const f0 = 140.0

	for i := range samples {
		t := dv.time + float64(i)*dt

		// Phrase envelope: ~1.4s of speech, ~0.9s of pause.
		phrase := math.Mod(t, 2.3)
		env := 0.0
		if phrase < 1.4 {
			env = math.Sin(math.Pi * phrase / 1.4)
			env *= 0.75 + 0.25*math.Sin(2*math.Pi*4.5*t)
		}

		sample := 0.0
		for j := range dv.harmonics {
			hm := &dv.harmonics[j]
			amp := hm.amp * (0.6 + 0.4*math.Sin(2*math.Pi*hm.modF*t))
			freq := f0*hm.mult + 6*math.Sin(2*math.Pi*0.7*t)
			sample += amp * math.Sin(2*math.Pi*freq*t)
		}

		sample *= env * 0.35
		sample += (rand.Float64()*2 - 1) * 0.004
		samples[i] = sample
	}

	dv.time += float64(dv.bufferSize) * dt
	return samples
}

func (dv *DemoVoice) Close() {}
