package main

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// StyleProfile is the fixed set of motion and color parameters for one
// mode. Hue is in degrees, Sat and Light in [0,1].
type StyleProfile struct {
	RadiusScale   float64
	Jitter        float64
	RotationSpeed float64
	PulseSpeed    float64
	BaseAlpha     float64
	Hue           float64
	Sat           float64
	Light         float64
}

// modeProfiles is read-only configuration keyed by mode; nothing mutates
// it after init.
var modeProfiles = map[Mode]StyleProfile{
	ModeIdle: {
		RadiusScale:   1.0,
		Jitter:        0.5,
		RotationSpeed: 0.15,
		PulseSpeed:    0.8,
		BaseAlpha:     0.55,
		Hue:           210, Sat: 0.60, Light: 0.55,
	},
	ModeListening: {
		RadiusScale:   1.15,
		Jitter:        1.2,
		RotationSpeed: 0.30,
		PulseSpeed:    1.6,
		BaseAlpha:     0.80,
		Hue:           145, Sat: 0.70, Light: 0.55,
	},
	ModeThinking: {
		RadiusScale:   0.90,
		Jitter:        2.2,
		RotationSpeed: 0.60,
		PulseSpeed:    2.4,
		BaseAlpha:     0.70,
		Hue:           275, Sat: 0.65, Light: 0.60,
	},
	ModeSpeaking: {
		RadiusScale:   1.25,
		Jitter:        1.6,
		RotationSpeed: 0.40,
		PulseSpeed:    3.0,
		BaseAlpha:     0.90,
		Hue:           25, Sat: 0.85, Light: 0.60,
	},
}

func profileFor(m Mode) StyleProfile {
	if p, ok := modeProfiles[m]; ok {
		return p
	}
	return modeProfiles[ModeIdle]
}

func lerpProfile(a, b StyleProfile, t float64) StyleProfile {
	return StyleProfile{
		RadiusScale:   lerp(a.RadiusScale, b.RadiusScale, t),
		Jitter:        lerp(a.Jitter, b.Jitter, t),
		RotationSpeed: lerp(a.RotationSpeed, b.RotationSpeed, t),
		PulseSpeed:    lerp(a.PulseSpeed, b.PulseSpeed, t),
		BaseAlpha:     lerp(a.BaseAlpha, b.BaseAlpha, t),
		Hue:           lerpHue(a.Hue, b.Hue, t),
		Sat:           lerp(a.Sat, b.Sat, t),
		Light:         lerp(a.Light, b.Light, t),
	}
}

// Color builds the profile color with optional hue/sat/light shifts,
// wrapping hue and clamping the rest.
func (p StyleProfile) Color(hueShift, satShift, lightShift float64) colorful.Color {
	return colorful.Hsl(
		wrapHue(p.Hue+hueShift),
		clamp(p.Sat+satShift, 0, 1),
		clamp(p.Light+lightShift, 0, 0.95),
	)
}

// Transition interpolates between two style profiles while a mode change
// is in flight. Progress advances once per frame; at most one transition
// is ever active and a new mode change restarts from the previous target.
type Transition struct {
	From     Mode
	To       Mode
	Progress float64
}

// NewTransition starts a transition. A same-mode change is trivially
// complete at progress 1.
func NewTransition(from, to Mode) Transition {
	tr := Transition{From: from, To: to}
	if from == to {
		tr.Progress = 1
	}
	return tr
}

func (tr *Transition) Done() bool {
	return tr.Progress >= 1
}

// Advance moves progress monotonically toward 1 by step.
func (tr *Transition) Advance(step float64) {
	tr.Progress += step
	if tr.Progress > 1 {
		tr.Progress = 1
	}
}

// Style resolves the effective profile for the current frame.
func (tr *Transition) Style() StyleProfile {
	if tr.Done() {
		return profileFor(tr.To)
	}
	return lerpProfile(profileFor(tr.From), profileFor(tr.To), tr.Progress)
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// lerpHue interpolates around the shorter arc of the color wheel.
func lerpHue(a, b, t float64) float64 {
	d := math.Mod(b-a+540, 360) - 180
	return wrapHue(a + d*t)
}

func wrapHue(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
