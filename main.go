package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
)

func main() {
	configFile := flag.String("config", "", "Path to config file (default: ~/.config/voxorb/config.yaml)")
	demo := flag.Bool("demo", false, "Demo mode with synthetic voice audio (no audio input needed)")
	fps := flag.Int("fps", 0, "Target frames per second (default: 60)")
	particles := flag.Int("particles", 0, "Particle count (default: 1500)")
	startMode := flag.String("mode", "", "Initial mode: idle, listening, thinking, speaking")
	flag.Parse()

	cfg := DefaultConfig()
	cfg.TryLoadDefault()

	if *configFile != "" {
		if err := cfg.LoadFromFile(*configFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *fps > 0 {
		cfg.Visual.FPS = *fps
	}
	if *particles > 0 {
		cfg.Particles.Count = *particles
	}
	cfg.DemoMode = *demo

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.Foreground(tcell.ColorWhite))
	screen.Clear()

	exCfg := ExtractorConfig{
		SampleRate:     cfg.Audio.SampleRate,
		FFTSize:        cfg.Analysis.FFTSize,
		Smoothing:      cfg.Analysis.Smoothing,
		VoiceThreshold: cfg.Analysis.VoiceThreshold,
		UpdateInterval: cfg.UpdateInterval(),
	}
	openLive := func() (AudioSource, error) {
		return NewPulseAudioCapture(cfg.Audio.SampleRate, cfg.Audio.BufferSize)
	}
	openDemo := func() (AudioSource, error) {
		return NewDemoVoice(cfg.Audio.SampleRate, cfg.Audio.BufferSize), nil
	}

	opener := openLive
	if cfg.DemoMode {
		opener = openDemo
	}
	extractor, err := NewFeatureExtractor(exCfg, opener)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	audioErr := ""
	if err := extractor.Start(); err != nil {
		audioErr = err.Error()
		cfg.DemoMode = true
		extractor, _ = NewFeatureExtractor(exCfg, openDemo)
		if err := extractor.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	defer extractor.Stop()

	machine := NewStateMachine(cfg.ListeningTimeout(), cfg.ThinkingTimeout(), cfg.Modes.AutoIdle)
	modeCh := make(chan Mode, 16)
	machine.Subscribe(func(m Mode) {
		select {
		case modeCh <- m:
		default:
		}
	})

	field, err := NewParticleField(FieldConfig{
		Count:           cfg.Particles.Count,
		BaseRadius:      cfg.Particles.BaseRadius,
		SizeMin:         cfg.Particles.SizeMin,
		SizeMax:         cfg.Particles.SizeMax,
		SpeedMultiplier: cfg.Particles.SpeedMultiplier,
	}, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	switch *startMode {
	case "", "idle":
	case "listening":
		machine.StartListening()
	case "thinking":
		machine.StartThinking()
	case "speaking":
		machine.StartSpeaking()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown mode %q\n", *startMode)
		os.Exit(1)
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.Visual.FPS))
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	eventCh := make(chan tcell.Event, 32)
	quitEventLoop := make(chan struct{})
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-quitEventLoop:
				return
			}
		}
	}()

	w, h := screen.Size()
	drawHeight := func() int {
		if cfg.Visual.ShowStatus {
			return h - 1
		}
		return h
	}
	canvas := NewGlowCanvas(w, drawHeight())

	tr := NewTransition(machine.Mode(), machine.Mode())
	start := time.Now()
	showHelp := false
	showAudioErr := audioErr != ""
	audioErrTimeout := time.Now().Add(5 * time.Second)
	running := true

	for running {
		select {
		case <-sigCh:
			running = false

		case ev := <-eventCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch ev.Key() {
				case tcell.KeyEscape:
					if showHelp {
						showHelp = false
					} else {
						running = false
					}
				case tcell.KeyCtrlC:
					running = false
				case tcell.KeyRune:
					switch ev.Rune() {
					case 'q', 'Q':
						running = false
					case 'l', 'L':
						if machine.Mode() == ModeListening {
							machine.StopListening()
						} else {
							machine.StartListening()
						}
					case 't', 'T':
						machine.StartThinking()
					case 's', 'S':
						if machine.Mode() == ModeSpeaking {
							machine.StopSpeaking()
						} else {
							machine.StartSpeaking()
						}
					case 'i', 'I':
						machine.Reset()
					case 'd', 'D':
						cfg.Visual.ShowMeter = !cfg.Visual.ShowMeter
					case '+', '=':
						extractor.SetVoiceThreshold(extractor.VoiceThreshold() * 1.25)
					case '-', '_':
						extractor.SetVoiceThreshold(extractor.VoiceThreshold() / 1.25)
					case '?', 'h', 'H':
						showHelp = !showHelp
					}
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case <-ticker.C:
		drain:
			for {
				select {
				case m := <-modeCh:
					tr = NewTransition(tr.To, m)
				default:
					break drain
				}
			}

			snap := extractor.Latest()
			if snap != nil {
				machine.UpdateVoiceActivity(snap.VoiceActive)
			}

			nw, nh := screen.Size()
			if nw < 4 || nh < 4 {
				continue
			}
			if nw != w || nh != h {
				w, h = nw, nh
				canvas.Resize(w, drawHeight())
			}

			canvas.Fade(cfg.Visual.TrailDecay)
			cmds := field.Update(machine.Mode(), &tr, snap, time.Since(start),
				canvas.PixelWidth(), canvas.PixelHeight())
			for i := range cmds {
				c := &cmds[i]
				canvas.FillCircle(c.X, c.Y, c.Radius, c.Color, c.Alpha)
			}

			screen.Clear()
			canvas.Render(screen, 0, 0)

			if cfg.Visual.ShowMeter {
				drawMeter(screen, w, snap)
			}
			if cfg.Visual.ShowStatus {
				drawStatusBar(screen, w, h, machine.Mode(), extractor.VoiceThreshold(), field.Count(), cfg)
			}
			if showHelp {
				drawHelpOverlay(screen, w, h)
			}
			if showAudioErr && time.Now().Before(audioErrTimeout) {
				drawNotification(screen, w, "Audio: "+audioErr+" (using demo voice)", tcell.ColorYellow)
			} else {
				showAudioErr = false
			}

			screen.Show()
		}
	}

	close(quitEventLoop)
}

func modeColor(m Mode) tcell.Color {
	p := profileFor(m)
	c := p.Color(0, 0, 0)
	r, g, b := c.RGB255()
	return tcell.NewRGBColor(int32(r), int32(g), int32(b))
}

func drawStatusBar(screen tcell.Screen, w, h int, mode Mode, threshold float64, count int, cfg *Config) {
	y := h - 1

	barStyle := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(120, 120, 140))

	src := "♪ LIVE"
	if cfg.DemoMode {
		src = "♪ DEMO"
	}

	status := fmt.Sprintf(" %s │ %s │ %d particles │ vad:%.3f │ l/t/s/i:modes │ ?:help ",
		src,
		strings.ToUpper(mode.String()),
		count,
		threshold,
	)

	accentStyle := barStyle.Foreground(tcell.NewRGBColor(100, 200, 255))
	dimStyle := barStyle.Foreground(tcell.NewRGBColor(80, 80, 100))
	modeStyle := barStyle.Foreground(modeColor(mode)).Bold(true)

	modeStart := strings.Index(status, "│") + len("│")
	modeEnd := modeStart + len(strings.ToUpper(mode.String())) + 2

	x := 0
	byteOff := 0
	for _, ch := range status {
		if x >= w {
			break
		}
		s := barStyle
		if ch == '│' {
			s = dimStyle
		} else if ch == '♪' {
			s = accentStyle
		} else if byteOff > modeStart && byteOff < modeEnd {
			s = modeStyle
		}
		screen.SetContent(x, y, ch, nil, s)
		x++
		byteOff += len(string(ch))
	}
}

func drawHelpOverlay(screen tcell.Screen, w, h int) {
	lines := []string{
		"╔══════════════════════════════════════════════╗",
		"║            VOXORB  ─  CONTROLS               ║",
		"╠══════════════════════════════════════════════╣",
		"║                                              ║",
		"║   l       Toggle listening                   ║",
		"║   t       Start thinking                     ║",
		"║   s       Toggle speaking                    ║",
		"║   i       Reset to idle                      ║",
		"║   d       Toggle band meter                  ║",
		"║   + / -   Adjust voice threshold             ║",
		"║                                              ║",
		"║   ?/h     Toggle this help                   ║",
		"║   q/ESC   Quit                               ║",
		"║                                              ║",
		"╚══════════════════════════════════════════════╝",
	}

	boxW := 48
	boxH := len(lines)
	startX := (w - boxW) / 2
	startY := (h - boxH) / 2
	if startX < 0 {
		startX = 0
	}
	if startY < 0 {
		startY = 0
	}

	bgStyle := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(200, 200, 220))
	borderStyle := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(80, 140, 220))
	titleStyle := tcell.StyleDefault.
		Foreground(tcell.NewRGBColor(120, 200, 255)).
		Bold(true)

	for i, line := range lines {
		y := startY + i
		if y >= h {
			break
		}
		x := startX
		for _, ch := range line {
			if x >= w {
				break
			}
			s := bgStyle
			if ch == '╔' || ch == '╗' || ch == '╚' || ch == '╝' || ch == '═' || ch == '║' || ch == '╠' || ch == '╣' {
				s = borderStyle
			}
			if i == 1 {
				s = titleStyle
			}
			screen.SetContent(x, y, ch, nil, s)
			x++
		}
	}
}

func drawNotification(screen tcell.Screen, w int, msg string, color tcell.Color) {
	y := 1
	x := (w - len(msg) - 4) / 2
	if x < 0 {
		x = 0
	}

	style := tcell.StyleDefault.Foreground(color)
	text := "  " + msg + "  "
	for i, ch := range text {
		if x+i < w {
			screen.SetContent(x+i, y, ch, nil, style)
		}
	}
}
