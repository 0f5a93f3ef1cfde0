// Package transcriber converts finished audio buffers to text. Each backend
// sends one finite buffer per call; streaming is out of scope.
package transcriber

import (
	"context"
	"fmt"
	"os"
)

type Transcriber interface {
	Name() string
	// Transcribe sends one finite 16kHz mono S16 PCM buffer.
	Transcribe(ctx context.Context, pcm []byte) (string, error)
	// SetModel points subsequent calls at a prepared model: a provider
	// model name for API backends, a ggml file path for whisper-cpp.
	SetModel(name string)
	SetLanguage(lang string)
}

// Options selects and configures a backend. An empty APIKey falls back on
// the provider's conventional environment variable.
type Options struct {
	Provider string
	APIKey   string
	APIURL   string
}

// New picks a backend by name. An empty provider falls back on whichever
// API key is present, then on a local whisper-cpp install.
func New(opts Options) (Transcriber, error) {
	groqKey := opts.APIKey
	if groqKey == "" {
		groqKey = os.Getenv("GROQ_API_KEY")
	}
	openaiKey := opts.APIKey
	if openaiKey == "" {
		openaiKey = os.Getenv("OPENAI_API_KEY")
	}

	switch opts.Provider {
	case "groq":
		if groqKey == "" {
			return nil, fmt.Errorf("groq: set GROQ_API_KEY environment variable")
		}
		return NewGroq(groqKey), nil
	case "openai":
		if openaiKey == "" {
			return nil, fmt.Errorf("openai: set OPENAI_API_KEY environment variable")
		}
		return NewOpenAI(openaiKey, opts.APIURL), nil
	case "whisper-cpp":
		return NewWhisperCpp()
	case "":
		if key := os.Getenv("GROQ_API_KEY"); key != "" {
			return NewGroq(key), nil
		}
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return NewOpenAI(key, opts.APIURL), nil
		}
		if w, err := NewWhisperCpp(); err == nil {
			return w, nil
		}
		return nil, fmt.Errorf("no transcription backend: set GROQ_API_KEY or OPENAI_API_KEY, or install whisper.cpp")
	}
	return nil, fmt.Errorf("unknown transcription provider %q", opts.Provider)
}
