package main

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// Fraction of the remaining distance a particle covers per frame.
	positionDamping = 0.1
	// Progress added per frame: a full transition in ~1s at 50 ticks/s.
	transitionStep = 0.02
	// Scales pulse phase so PulseSpeed ~1 breathes about once per 3s.
	pulseRate = 2.0

	glowAlphaGate     = 0.72
	glowAmplitudeGate = 0.22
)

// RandSource supplies the per-frame jitter. Injecting it keeps the field
// deterministic under test with a seeded generator.
type RandSource interface {
	Float64() float64
}

type FieldConfig struct {
	Count           int
	BaseRadius      float64
	SizeMin         float64
	SizeMax         float64
	SpeedMultiplier float64
}

func (c FieldConfig) validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("%w: particle count %d", ErrInvalidConfig, c.Count)
	}
	if c.BaseRadius <= 0 {
		return fmt.Errorf("%w: base radius %.1f", ErrInvalidConfig, c.BaseRadius)
	}
	if c.SizeMin <= 0 || c.SizeMax < c.SizeMin {
		return fmt.Errorf("%w: particle size range [%.1f, %.1f]", ErrInvalidConfig, c.SizeMin, c.SizeMax)
	}
	if c.SpeedMultiplier <= 0 {
		return fmt.Errorf("%w: speed multiplier %.2f", ErrInvalidConfig, c.SpeedMultiplier)
	}
	return nil
}

type vec3 struct {
	X, Y, Z float64
}

type particle struct {
	cur    vec3
	base   vec3
	size   float64
	alpha  float64
	hueOff float64
}

// DrawCommand is one circle for the host surface to fill. Commands arrive
// sorted far to near; Glow marks the soft secondary halo drawn under a
// bright particle.
type DrawCommand struct {
	X, Y   float64
	Radius float64
	Color  colorful.Color
	Alpha  float64
	Depth  float64
	Glow   bool
}

type projected struct {
	x, y, r float64
	alpha   float64
	depth   float64
	color   colorful.Color
	glow    bool
}

// ParticleField owns a fixed arena of particles on a sphere and renders
// them to a 2-D draw list every frame. Nothing outside the field reads or
// writes individual particles.
type ParticleField struct {
	cfg       FieldConfig
	rng       RandSource
	particles []particle
	rotation  float64
	lastT     float64

	scratch []projected
	order   []int
	cmds    []DrawCommand
}

// NewParticleField builds the particle set. A nil rng falls back to the
// global math/rand source.
func NewParticleField(cfg FieldConfig, rng RandSource) (*ParticleField, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	pf := &ParticleField{rng: rng}
	pf.rebuild(cfg)
	return pf, nil
}

// Reconfigure fully replaces the particle set. The old set is discarded
// even when only one parameter changed.
func (pf *ParticleField) Reconfigure(cfg FieldConfig) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	pf.rebuild(cfg)
	return nil
}

func (pf *ParticleField) Count() int { return len(pf.particles) }

func (pf *ParticleField) rebuild(cfg FieldConfig) {
	pf.cfg = cfg
	pf.particles = make([]particle, cfg.Count)
	pf.scratch = make([]projected, cfg.Count)
	pf.order = make([]int, cfg.Count)
	pf.cmds = make([]DrawCommand, 0, cfg.Count*2)

	// Fibonacci sphere: deterministic, equal-area placement.
	golden := math.Pi * (3 - math.Sqrt(5))
	n := float64(cfg.Count)
	for i := range pf.particles {
		y := 1 - 2*(float64(i)+0.5)/n
		r := math.Sqrt(1 - y*y)
		theta := golden * float64(i)

		p := &pf.particles[i]
		p.base = vec3{
			X: math.Cos(theta) * r * cfg.BaseRadius,
			Y: y * cfg.BaseRadius,
			Z: math.Sin(theta) * r * cfg.BaseRadius,
		}
		p.cur = p.base
		p.size = cfg.SizeMin + pf.rng.Float64()*(cfg.SizeMax-cfg.SizeMin)
		p.alpha = 0.4 + pf.rng.Float64()*0.6
		p.hueOff = (pf.rng.Float64()*2 - 1) * 22
	}
}

// Update advances every particle one frame and returns the draw list for
// the given viewport, sorted far to near. A nil snapshot renders as
// silence. A nil transition uses the static profile for mode. The
// returned slice is reused across calls.
func (pf *ParticleField) Update(mode Mode, tr *Transition, snap *FeatureSnapshot, elapsed time.Duration, viewW, viewH int) []DrawCommand {
	var amp, bass, mid, treble float64
	voice := false
	if snap != nil {
		amp, bass, mid, treble = snap.Amplitude, snap.Bass, snap.Mid, snap.Treble
		voice = snap.VoiceActive
	}

	style := profileFor(mode)
	if tr != nil {
		style = tr.Style()
		if !tr.Done() {
			tr.Advance(transitionStep * pf.cfg.SpeedMultiplier)
		}
	}

	t := elapsed.Seconds()
	dt := t - pf.lastT
	if dt < 0 || dt > 0.25 {
		dt = 1.0 / 60
	}
	pf.lastT = t
	pf.rotation += style.RotationSpeed * pf.cfg.SpeedMultiplier * dt

	audioRadius := 1 + amp*0.3 + bass*0.2
	pulse := 1 + 0.1*math.Sin(t*style.PulseSpeed*pf.cfg.SpeedMultiplier*pulseRate)
	scale := style.RadiusScale * audioRadius * pulse
	if voice {
		scale *= 1 + mid*0.4
	}

	jitter := style.Jitter * (0.5 + amp + treble)
	sinR, cosR := math.Sincos(pf.rotation)

	// Perspective camera at a fixed distance from the sphere center.
	camera := pf.cfg.BaseRadius * 3
	fit := math.Min(float64(viewW), float64(viewH)) / (pf.cfg.BaseRadius * 3.4)
	if fit <= 0 {
		fit = 1
	}
	cx := float64(viewW) / 2
	cy := float64(viewH) / 2

	hueShift := amp*28 - treble*12
	satShift := mid * 0.2
	lightShift := amp * 0.15

	for i := range pf.particles {
		p := &pf.particles[i]

		tx := p.base.X * scale
		ty := p.base.Y * scale
		tz := p.base.Z * scale

		p.cur.X += (tx-p.cur.X)*positionDamping + (pf.rng.Float64()*2-1)*jitter
		p.cur.Y += (ty-p.cur.Y)*positionDamping + (pf.rng.Float64()*2-1)*jitter
		p.cur.Z += (tz-p.cur.Z)*positionDamping + (pf.rng.Float64()*2-1)*jitter

		// Rotate about the vertical axis for projection only; the
		// particle's own position stays in model space.
		rx := p.cur.X*cosR - p.cur.Z*sinR
		rz := p.cur.X*sinR + p.cur.Z*cosR

		persp := camera / (camera + rz)
		depthNorm := clamp((persp-0.75)/0.75, 0, 1)

		pr := &pf.scratch[i]
		pr.x = cx + rx*persp*fit
		pr.y = cy + p.cur.Y*persp*fit
		pr.depth = rz
		pr.r = p.size * persp * fit * (1 + bass*0.5 + amp*0.3)
		if pr.r < 0.5 {
			pr.r = 0.5
		}
		pr.alpha = clamp(style.BaseAlpha*p.alpha*(0.45+0.55*depthNorm)*(0.7+0.3*amp), 0, 1)
		pr.color = style.Color(hueShift+p.hueOff, satShift, lightShift)
		pr.glow = pr.alpha > glowAlphaGate && amp > glowAmplitudeGate
		pf.order[i] = i
	}

	// Far to near so near particles draw last and occlude correctly.
	sort.Slice(pf.order, func(a, b int) bool {
		return pf.scratch[pf.order[a]].depth > pf.scratch[pf.order[b]].depth
	})

	pf.cmds = pf.cmds[:0]
	for _, i := range pf.order {
		pr := &pf.scratch[i]
		if pr.glow {
			pf.cmds = append(pf.cmds, DrawCommand{
				X: pr.x, Y: pr.y,
				Radius: pr.r * 2.5,
				Color:  pr.color,
				Alpha:  pr.alpha * 0.25,
				Depth:  pr.depth,
				Glow:   true,
			})
		}
		pf.cmds = append(pf.cmds, DrawCommand{
			X: pr.x, Y: pr.y,
			Radius: pr.r,
			Color:  pr.color,
			Alpha:  pr.alpha,
			Depth:  pr.depth,
		})
	}
	return pf.cmds
}
