package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"dikta/encoder"
)

// WhisperCpp shells out to a local whisper.cpp install. SetModel receives
// the path of a downloaded ggml model file.
type WhisperCpp struct {
	binPath string

	mu        sync.Mutex
	modelPath string
	lang      string
}

func NewWhisperCpp() (*WhisperCpp, error) {
	bin := findWhisperBinary()
	if bin == "" {
		return nil, fmt.Errorf("whisper.cpp binary not found in PATH")
	}
	return &WhisperCpp{binPath: bin}, nil
}

func (w *WhisperCpp) Name() string { return "whisper-cpp" }

func (w *WhisperCpp) SetModel(name string) {
	w.mu.Lock()
	w.modelPath = name
	w.mu.Unlock()
}

func (w *WhisperCpp) SetLanguage(lang string) {
	w.mu.Lock()
	w.lang = lang
	w.mu.Unlock()
}

func (w *WhisperCpp) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	w.mu.Lock()
	modelPath, lang := w.modelPath, w.lang
	w.mu.Unlock()

	if modelPath == "" {
		return "", fmt.Errorf("no model loaded")
	}

	audioPath := filepath.Join(os.TempDir(), fmt.Sprintf("dikta_audio_%d.wav", time.Now().UnixNano()))
	if err := os.WriteFile(audioPath, encoder.WAV(pcm), 0644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	defer os.Remove(audioPath)

	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-oj",
		"--no-prints",
	}
	if lang != "" {
		args = append(args, "-l", lang)
	}

	cmd := exec.CommandContext(ctx, w.binPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("whisper.cpp failed: %w, stderr: %s", err, stderr.String())
	}

	var out whisperCppOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		// Older builds print plain text despite -oj.
		return stdout.String(), nil
	}
	var text string
	for _, seg := range out.Transcription {
		text += seg.Text
	}
	return text, nil
}

type whisperCppOutput struct {
	Transcription []struct {
		Text string `json:"text"`
	} `json:"transcription"`
}

func findWhisperBinary() string {
	// whisper-cli is the Homebrew name.
	names := []string{"whisper-cli", "whisper-cpp", "whisper"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	homeDir, _ := os.UserHomeDir()
	locations := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(homeDir, ".local", "bin"),
	}
	for _, loc := range locations {
		for _, name := range names {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}
