package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"dikta/audio"
	"dikta/beep"
	"dikta/clipboard"
	"dikta/config"
	"dikta/coordinator"
	"dikta/doctor"
	"dikta/encoder"
	"dikta/hotkey"
	"dikta/log"
	"dikta/model"
	"dikta/shutdown"
	"dikta/transcriber"
	"dikta/tray"
)

var version = "dev"

var shutdownOnce sync.Once

func gracefulShutdown(sink *outputSink) {
	shutdownOnce.Do(func() {
		if sink != nil {
			if n := sink.transcripts(); n > 0 {
				log.SessionEnd(n)
			}
		}
		log.Close()
		tray.Quit()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func deviceLineText(name string) string {
	if name == "" {
		name = "system default"
	}
	suffix := ""
	if audio.IsBluetooth(name) {
		suffix = " (BT!)"
	}
	return "mic: " + name + suffix
}

func modeLineText(provider, activeModel string) string {
	return fmt.Sprintf("[%s | %s]", provider, activeModel)
}

func run() {
	configFlag := flag.String("config", config.DefaultPath(), "Path to config file")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	setupFlag := flag.Bool("setup", false, "Select microphone device interactively")
	modelFlag := flag.String("model", "", "Transcription model to start with")
	autoPasteFlag := flag.Bool("autopaste", true, "Auto-paste to focused window after transcription")
	logPathFlag := flag.String("logpath", "", "Log directory path (default: OS-specific location)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	doctorFlag := flag.Bool("doctor", false, "Run system diagnostics and exit")
	crashFlag := flag.Bool("crash", false, "Trigger synthetic panic for testing crash logging")
	tuiFlag := flag.Bool("tui", true, "Run with terminal UI")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("dikta %s\n", version)
		os.Exit(0)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Flags explicitly set on the command line win over the config file.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "device":
			cfg.Audio.Device = *deviceFlag
		case "model":
			cfg.Model = *modelFlag
		case "autopaste":
			cfg.AutoPaste = *autoPasteFlag
		}
	})
	if *modelFlag != "" {
		if _, ok := model.Lookup(*modelFlag); !ok {
			fmt.Fprintf(os.Stderr, "Error: unknown model %q (have %v)\n", *modelFlag, model.IDs())
			os.Exit(1)
		}
	}

	logPath := *logPathFlag
	if logPath == "" {
		logPath = cfg.LogDir
	}
	logDir, err := log.ResolveDir(logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logDir)
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	if *crashFlag {
		panic("TEST CRASH: synthetic panic to verify crash logging")
	}

	if *doctorFlag {
		os.Exit(doctor.Run(cfg))
	}

	trans, err := transcriber.New(transcriber.Options{
		Provider: cfg.Provider.Name,
		APIKey:   cfg.Provider.APIKey,
		APIURL:   cfg.Provider.APIURL,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if lang := cfg.Provider.Language; lang != "" && lang != "auto" {
		trans.SetLanguage(lang)
	}

	loader := model.NewLoader(model.LoaderConfig{
		Provider: trans.Name(),
		Dir:      cfg.ModelDir,
		Target:   trans,
		Progress: func(id string, pct int) {
			tuiSend(LoadProgressMsg{Model: id, Pct: pct})
		},
	})

	// The startup model loads synchronously so the pipeline begins with a
	// usable model. For whisper-cpp this may download weights.
	fmt.Fprintf(os.Stderr, "Preparing model %s (%s)...\n", cfg.Model, trans.Name())
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Minute)
	if err := loader.Load(loadCtx, cfg.Model); err != nil {
		cancelLoad()
		fmt.Fprintf(os.Stderr, "Error: preparing model %s: %v\n", cfg.Model, err)
		os.Exit(1)
	}
	cancelLoad()

	audioCtx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer audioCtx.Close()

	var selectedDevice *audio.DeviceInfo
	if cfg.Audio.Device != "" {
		selectedDevice = findDevice(audioCtx, cfg.Audio.Device)
		if selectedDevice == nil {
			fmt.Fprintf(os.Stderr, "Warning: device %q not found, using default\n", cfg.Audio.Device)
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(audioCtx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Fprintf(os.Stderr, "Warning: device selection failed: %v\n", err)
			selectedDevice = nil
		}
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
	capture, err := audioCtx.NewCapture(selectedDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Fprintf(os.Stderr, "Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer capture.Close()

	if cfg.AutoPaste {
		if err := clipboard.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste init failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}

	if cfg.Audio.Beeps {
		go beep.Init()
	} else {
		beep.Disable()
	}

	// The coordinator reference is late-bound: the recorder's max-duration
	// timer needs it before New can run.
	var coordRef *coordinator.Coordinator
	recorder := audio.NewRecorder(capture, audio.RecorderConfig{
		SampleRate:  encoder.SampleRate,
		MaxDuration: time.Duration(cfg.Audio.MaxDurationSec) * time.Second,
		OnMaxDuration: func() {
			log.Info("max_duration_stop")
			if coordRef != nil {
				coordRef.Submit(coordinator.Command{Kind: coordinator.CmdStopRecording})
			}
		},
		OnLevel: func(level float64) {
			tuiSend(AudioLevelMsg{Level: level})
		},
	})

	stats := &sessionStats{}
	output := &outputSink{
		provider:  trans.Name(),
		autoPaste: cfg.AutoPaste,
		restore:   true,
		stats:     stats,
	}
	status := &statusSink{stats: stats}

	coord := coordinator.New(context.Background(), coordinator.Config{
		Recorder:    recorderAdapter{rec: recorder},
		Transcriber: trans,
		Loader:      loader,
		Output:      output,
		Status:      status,
		Model:       cfg.Model,
	})
	coordRef = coord
	output.modelFn = coord.ActiveModel

	a := &app{
		coord:   coord,
		monitor: hotkey.NewMonitor(cfg.Bindings()),
		models:  cfg.Models,
	}

	// Start TUI
	if !*tuiFlag {
		tuiReadyOnce.Do(func() { close(tuiReady) })
	} else {
		tuiMu.Lock()
		tuiProgram = NewTUIProgram()
		tuiMu.Unlock()

		go func() {
			if _, err := tuiProgram.Run(); err != nil {
				log.Errorf("TUI error: %v", err)
				os.Exit(1)
			}
			gracefulShutdown(output)
		}()

		<-tuiReady
	}

	trayQuit := tray.Init(cfg.Models, cfg.Model, tray.Callbacks{
		OnRecord: func() {
			a.submit(coordinator.Command{Kind: coordinator.CmdStartRecording})
		},
		OnStop: func() {
			a.submit(coordinator.Command{Kind: coordinator.CmdStopRecording})
		},
		OnCopyLast: func() {
			if text := output.last(); text != "" {
				clipboard.Copy(text)
			}
		},
		OnModel: func(id string) {
			a.submit(coordinator.Command{Kind: coordinator.CmdModelChange, Model: id})
		},
	})

	deviceName := ""
	if selectedDevice != nil {
		deviceName = selectedDevice.Name
	}
	tuiSend(ModeLineMsg{Text: modeLineText(trans.Name(), cfg.Model)})
	tuiSend(DeviceLineMsg{Text: deviceLineText(deviceName)})

	go watchDevices(audioCtx, recorder, captureConfig, deviceName)

	sigChan := make(chan os.Signal, 1)
	shutdown.Notify(sigChan)
	go func() {
		select {
		case <-sigChan:
		case <-trayQuit:
		}
		gracefulShutdown(output)
	}()

	var chords []hotkey.Chord
	for _, b := range cfg.Bindings() {
		chords = append(chords, b.Chord)
	}
	source := hotkey.NewSource(chords)
	if err := source.Start(); err != nil {
		log.Errorf("keyboard source error: %v", err)
		fmt.Fprintf(os.Stderr, "Error reading keyboard: %v\n", err)
		os.Exit(1)
	}
	defer source.Stop()

	log.SessionStart(trans.Name(), cfg.Model)

	for ev := range source.Events() {
		a.handleKey(ev)
	}
}

func findDevice(ctx audio.Context, name string) *audio.DeviceInfo {
	devices, err := ctx.Devices()
	if err != nil {
		return nil
	}
	for i := range devices {
		if devices[i].Name == name {
			return &devices[i]
		}
	}
	return nil
}

// watchDevices polls for capture device hotplug. When the selected device
// disappears the recorder falls back to the system default; when the
// preferred device comes back it is reattached.
func watchDevices(ctx audio.Context, recorder *audio.Recorder, captureConfig audio.CaptureConfig, preferred string) {
	current := preferred
	var last []string
	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		devices, err := ctx.Devices()
		if err != nil {
			continue
		}
		names := make([]string, len(devices))
		for i := range devices {
			names[i] = devices[i].Name
		}
		if slices.Equal(last, names) {
			continue
		}
		last = names

		if current != "" && !slices.Contains(names, current) {
			// Selected device disappeared, fall back to default.
			log.Info("device_disconnected: " + current)
			if swapDevice(ctx, recorder, captureConfig, nil) {
				current = ""
				tuiSend(DeviceLineMsg{Text: deviceLineText("")})
			}
		} else if current == "" && preferred != "" && slices.Contains(names, preferred) {
			// Preferred device reappeared, reattach it.
			log.Info("device_reconnected: " + preferred)
			for i := range devices {
				if devices[i].Name == preferred {
					if swapDevice(ctx, recorder, captureConfig, &devices[i]) {
						current = preferred
						tuiSend(DeviceLineMsg{Text: deviceLineText(preferred)})
					}
					break
				}
			}
		}
	}
}

func swapDevice(ctx audio.Context, recorder *audio.Recorder, captureConfig audio.CaptureConfig, device *audio.DeviceInfo) bool {
	capture, err := ctx.NewCapture(device, captureConfig)
	if err != nil {
		log.Errorf("capture device reinit error: %v", err)
		return false
	}
	recorder.SwapDevice(capture)
	return true
}
