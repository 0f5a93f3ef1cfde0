// Package doctor runs interactive end-to-end checks of the capture,
// transcription, and delivery path.
package doctor

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"dikta/audio"
	"dikta/clipboard"
	"dikta/config"
	"dikta/encoder"
	"dikta/hotkey"
	"dikta/transcriber"
)

// Run executes interactive diagnostic checks and returns an exit code
// (0=all pass, 1=any fail).
func Run(cfg config.Config) int {
	resetTerminal()
	setupInterruptHandler()

	fmt.Println("dikta doctor - interactive system diagnostics")
	fmt.Println("=============================================")

	allPass := true

	if !checkKeyboard(cfg) {
		allPass = false
	}
	if allPass && !checkMicAndTranscription(cfg) {
		allPass = false
	}
	if allPass && !checkClipboard() {
		allPass = false
	}

	fmt.Println()
	if allPass {
		fmt.Println("All checks passed!")
	} else {
		fmt.Println("Some checks failed. See details above.")
	}

	if allPass {
		return 0
	}
	return 1
}

func checkKeyboard(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[1/3] Keyboard access")

	if msg, err := hotkey.Diagnose(); err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	} else if msg != "" {
		fmt.Printf("  %s\n", msg)
	}

	bindings := cfg.Bindings()
	var chords []hotkey.Chord
	for _, b := range bindings {
		chords = append(chords, b.Chord)
	}
	source := hotkey.NewSource(chords)
	if err := source.Start(); err != nil {
		fmt.Printf("  FAIL: cannot read keyboard events: %v\n", err)
		return false
	}
	defer source.Stop()

	monitor := hotkey.NewMonitor(bindings)
	fmt.Printf("Press the start chord (%s) within 10 seconds...\n", cfg.Hotkeys.Start)

	deadline := time.After(10 * time.Second)
	for {
		select {
		case ev := <-source.Events():
			if trig, ok := monitor.OnKey(ev); ok && trig == hotkey.TriggerStart {
				fmt.Println("  PASS: start chord detected")
				resetTerminal()
				return true
			}
		case <-deadline:
			fmt.Println("  FAIL: timeout waiting for start chord")
			return false
		}
	}
}

func checkMicAndTranscription(cfg config.Config) bool {
	fmt.Println()
	fmt.Println("[2/3] Microphone and transcription")

	reader := bufio.NewReader(os.Stdin)

	audioCtx, err := audio.NewContext()
	if err != nil {
		fmt.Printf("  FAIL: cannot connect to audio: %v\n", err)
		return false
	}
	defer audioCtx.Close()

	device, err := audio.SelectDevice(audioCtx)
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("Using device: %s\n", device.Name)

	trans, err := transcriber.New(transcriber.Options{
		Provider: cfg.Provider.Name,
		APIKey:   cfg.Provider.APIKey,
		APIURL:   cfg.Provider.APIURL,
	})
	if err != nil {
		fmt.Printf("  FAIL: %v\n", err)
		return false
	}
	fmt.Printf("Using provider: %s\n", trans.Name())

	fmt.Println()
	fmt.Print("Press Enter and speak for 3 seconds...")
	reader.ReadString('\n')

	capture, err := audioCtx.NewCapture(device, audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	})
	if err != nil {
		fmt.Printf("  FAIL: cannot open capture device: %v\n", err)
		return false
	}

	recorder := audio.NewRecorder(capture, audio.RecorderConfig{
		SampleRate: encoder.SampleRate,
	})
	session, err := recorder.Start()
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		capture.Close()
		return false
	}

	fmt.Print("  Recording")
	for i := 0; i < 6; i++ {
		time.Sleep(500 * time.Millisecond)
		fmt.Print(".")
	}
	pcm, err := session.Stop()
	capture.Close()
	fmt.Println(" done")
	if err != nil {
		fmt.Printf("  FAIL: recording error: %v\n", err)
		return false
	}
	if len(pcm) == 0 {
		fmt.Println("  FAIL: no audio captured")
		return false
	}

	fmt.Printf("  Recorded %.1f KB, transcribing...\n", float64(len(pcm))/1024)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	text, err := trans.Transcribe(ctx, pcm)
	if err != nil {
		fmt.Printf("  FAIL: transcription error: %v\n", err)
		return false
	}

	text = strings.TrimSpace(text)
	if text == "" {
		text = "(no speech detected)"
	}

	fmt.Printf("\n  Transcribed text: %s\n\n", text)

	// Fresh reader to clear any buffered input
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Print("Is this correct? [y/n]: ")
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm == "y" || confirm == "yes" {
		fmt.Println("  PASS: transcription verified by user")
		return true
	}

	fmt.Println("  FAIL: transcription not confirmed")
	return false
}

func checkClipboard() bool {
	fmt.Println()
	fmt.Println("[3/3] Clipboard and paste")

	if msg, err := clipboard.Verify(); err != nil {
		fmt.Printf("  Warning: keystroke output: %v\n", err)
	} else {
		fmt.Printf("  %s\n", msg)
	}

	fmt.Println("Focus on a text editor window...")
	for i := 5; i > 0; i-- {
		fmt.Printf("  %d...\n", i)
		time.Sleep(1 * time.Second)
	}

	testStr := "dikta-doctor-test"
	if err := clipboard.Copy(testStr); err != nil {
		fmt.Printf("  FAIL: clipboard copy failed: %v\n", err)
		return false
	}
	if err := clipboard.Paste(); err != nil {
		fmt.Printf("  FAIL: paste failed: %v\n", err)
		return false
	}

	// Reset terminal and use fresh reader for confirmation
	resetTerminal()
	confirmReader := bufio.NewReader(os.Stdin)
	fmt.Println()
	fmt.Printf("Did the text %q appear? [y/n]: ", testStr)
	confirm, _ := confirmReader.ReadString('\n')
	confirm = strings.TrimSpace(strings.ToLower(confirm))

	if confirm != "y" && confirm != "yes" {
		fmt.Println("  FAIL: clipboard/paste not confirmed")
		return false
	}
	fmt.Println("  PASS: clipboard and paste verified by user")

	fmt.Println()
	fmt.Println("  Verifying clipboard preservation...")
	sentinel := "dikta-preserve-check"
	if err := clipboard.Copy(sentinel); err != nil {
		fmt.Printf("  FAIL: could not set sentinel: %v\n", err)
		return false
	}

	fmt.Println("  Focus on the text editor again...")
	for i := 3; i > 0; i-- {
		fmt.Printf("  %d...\n", i)
		time.Sleep(1 * time.Second)
	}

	if err := clipboard.Deliver("dikta-temp-replacement", true, true); err != nil {
		fmt.Printf("  FAIL: delivery failed: %v\n", err)
		return false
	}

	time.Sleep(500 * time.Millisecond)

	if err := clipboard.Copy(sentinel); err != nil {
		fmt.Printf("  FAIL: clipboard restore failed: %v\n", err)
		return false
	}
	restored, err := clipboard.Read()
	if err != nil {
		fmt.Printf("  FAIL: could not read clipboard after restore: %v\n", err)
		return false
	}
	if restored != sentinel {
		fmt.Printf("  FAIL: clipboard not preserved (got %q, want %q)\n", restored, sentinel)
		return false
	}
	fmt.Println("  PASS: clipboard preservation verified")
	return true
}
