package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
)

var blockChars = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// drawMeter renders a small band-energy HUD in the top-right corner:
// bass/mid/treble columns, an amplitude readout, and a voice lamp.
func drawMeter(screen tcell.Screen, w int, snap *FeatureSnapshot) {
	const meterH = 6
	const meterW = 14
	x0 := w - meterW
	if x0 < 0 {
		return
	}

	var amp, bass, mid, treble float64
	voice := false
	if snap != nil {
		amp, bass, mid, treble = snap.Amplitude, snap.Bass, snap.Mid, snap.Treble
		voice = snap.VoiceActive
	}

	cols := []struct {
		label rune
		val   float64
		color tcell.Color
	}{
		{'B', bass, tcell.NewRGBColor(235, 110, 80)},
		{'M', mid, tcell.NewRGBColor(120, 215, 130)},
		{'T', treble, tcell.NewRGBColor(110, 170, 250)},
	}

	colH := meterH - 2
	for i, c := range cols {
		x := x0 + 1 + i*3
		drawMeterColumn(screen, x, colH, colH, c.val, c.color)
		labelStyle := tcell.StyleDefault.Foreground(tcell.NewRGBColor(140, 140, 160))
		screen.SetContent(x, colH+1, c.label, nil, labelStyle)
	}

	lamp := '○'
	lampColor := tcell.NewRGBColor(90, 90, 110)
	if voice {
		lamp = '●'
		lampColor = tcell.NewRGBColor(120, 235, 140)
	}
	screen.SetContent(x0+11, 1, lamp, nil, tcell.StyleDefault.Foreground(lampColor))

	ampText := fmt.Sprintf("%3.0f%%", amp*100)
	ampStyle := tcell.StyleDefault.Foreground(tcell.NewRGBColor(180, 180, 200))
	for i, ch := range ampText {
		screen.SetContent(x0+10+i-1, colH+1, ch, nil, ampStyle)
	}
}

// drawMeterColumn draws a bottom-anchored block column of height val·maxH
// cells, with eighth-block sub-cell resolution at the tip.
func drawMeterColumn(screen tcell.Screen, x, bottomY, maxH int, val float64, color tcell.Color) {
	sub := int(clamp(val, 0, 1) * float64(maxH) * 8)
	fullCells := sub / 8
	remainder := sub % 8

	st := tcell.StyleDefault.Foreground(color)
	for i := 0; i < fullCells && i < maxH; i++ {
		screen.SetContent(x, bottomY-i, '█', nil, st)
	}
	if remainder > 0 && fullCells < maxH {
		screen.SetContent(x, bottomY-fullCells, blockChars[remainder], nil, st)
	}
}
