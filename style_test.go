package main

import (
	"math"
	"testing"
)

func TestEveryModeHasAProfile(t *testing.T) {
	for _, m := range []Mode{ModeIdle, ModeListening, ModeThinking, ModeSpeaking} {
		p, ok := modeProfiles[m]
		if !ok {
			t.Fatalf("no profile for %v", m)
		}
		if p.BaseAlpha <= 0 || p.BaseAlpha > 1 {
			t.Errorf("%v: base alpha %f", m, p.BaseAlpha)
		}
		if p.RadiusScale <= 0 {
			t.Errorf("%v: radius scale %f", m, p.RadiusScale)
		}
		if p.Sat < 0 || p.Sat > 1 || p.Light < 0 || p.Light > 1 {
			t.Errorf("%v: sat/light (%f, %f)", m, p.Sat, p.Light)
		}
	}
}

func TestUnknownModeFallsBackToIdleProfile(t *testing.T) {
	if profileFor(Mode(42)) != modeProfiles[ModeIdle] {
		t.Error("unknown mode did not fall back to the idle profile")
	}
}

func TestLerpProfileEndpoints(t *testing.T) {
	a := modeProfiles[ModeIdle]
	b := modeProfiles[ModeSpeaking]

	if got := lerpProfile(a, b, 0); got != a {
		t.Errorf("t=0: got %+v, want from profile", got)
	}
	end := lerpProfile(a, b, 1)
	if math.Abs(end.BaseAlpha-b.BaseAlpha) > 1e-12 ||
		math.Abs(end.RadiusScale-b.RadiusScale) > 1e-12 ||
		math.Abs(end.Hue-b.Hue) > 1e-9 {
		t.Errorf("t=1: got %+v, want to profile %+v", end, b)
	}

	mid := lerpProfile(a, b, 0.5)
	want := (a.BaseAlpha + b.BaseAlpha) / 2
	if math.Abs(mid.BaseAlpha-want) > 1e-12 {
		t.Errorf("t=0.5: base alpha %f, want %f", mid.BaseAlpha, want)
	}
}

func TestLerpHueTakesShortArc(t *testing.T) {
	if got := lerpHue(350, 10, 0.5); got != 0 {
		t.Errorf("lerpHue(350, 10, 0.5) = %f, want 0 (across the wrap)", got)
	}
	if got := lerpHue(10, 350, 0.5); got != 0 {
		t.Errorf("lerpHue(10, 350, 0.5) = %f, want 0", got)
	}
	if got := lerpHue(100, 140, 0.25); math.Abs(got-110) > 1e-9 {
		t.Errorf("lerpHue(100, 140, 0.25) = %f, want 110", got)
	}
}

func TestSameModeTransitionIsComplete(t *testing.T) {
	tr := NewTransition(ModeListening, ModeListening)
	if !tr.Done() {
		t.Error("same-mode transition not complete")
	}
	if tr.Progress != 1 {
		t.Errorf("progress = %f, want 1", tr.Progress)
	}
	if tr.Style() != modeProfiles[ModeListening] {
		t.Error("completed transition does not use the target profile")
	}
}

func TestTransitionAdvanceClampsAtOne(t *testing.T) {
	tr := NewTransition(ModeIdle, ModeThinking)
	if tr.Done() {
		t.Fatal("fresh transition already done")
	}
	for i := 0; i < 200; i++ {
		tr.Advance(0.02)
	}
	if tr.Progress != 1 {
		t.Errorf("progress = %f, want clamped to 1", tr.Progress)
	}
}

func TestProfileColorShiftsStayInGamut(t *testing.T) {
	p := modeProfiles[ModeSpeaking]
	for _, shift := range []float64{-500, -30, 0, 30, 500} {
		c := p.Color(shift, 0.5, 0.5)
		if c.R < 0 || c.R > 1 || c.G < 0 || c.G > 1 || c.B < 0 || c.B > 1 {
			t.Errorf("shift %f: color out of gamut: %+v", shift, c)
		}
	}
}
