package model

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

type fakeTarget struct {
	mu     sync.Mutex
	models []string
}

func (t *fakeTarget) SetModel(name string) {
	t.mu.Lock()
	t.models = append(t.models, name)
	t.mu.Unlock()
}

func (t *fakeTarget) last() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.models) == 0 {
		return ""
	}
	return t.models[len(t.models)-1]
}

func TestLookup(t *testing.T) {
	info, ok := Lookup("base")
	if !ok || info.ID != "base" {
		t.Fatalf("Lookup(base) = %+v, %v", info, ok)
	}
	if _, ok := Lookup("enormous"); ok {
		t.Fatal("Lookup accepted unknown model")
	}
}

func TestLoadAPIProviderResolvesRemoteName(t *testing.T) {
	target := &fakeTarget{}
	l := NewLoader(LoaderConfig{Provider: "groq", Target: target})

	if err := l.Load(context.Background(), "large"); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := target.last(); got != "whisper-large-v3" {
		t.Fatalf("target model = %q, want whisper-large-v3", got)
	}
}

func TestLoadUnknownModel(t *testing.T) {
	l := NewLoader(LoaderConfig{Provider: "groq", Target: &fakeTarget{}})
	if err := l.Load(context.Background(), "enormous"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestLoadWhisperCppDownloads(t *testing.T) {
	weights := []byte("ggml weights")
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write(weights)
	}))
	defer srv.Close()

	dir := t.TempDir()
	target := &fakeTarget{}
	progressed := false
	l := NewLoader(LoaderConfig{
		Provider: "whisper-cpp",
		Dir:      dir,
		BaseURL:  srv.URL,
		Target:   target,
		Progress: func(string, int) { progressed = true },
	})

	if err := l.Load(context.Background(), "tiny"); err != nil {
		t.Fatalf("Load: %v", err)
	}

	path := filepath.Join(dir, "ggml-tiny.bin")
	if got := target.last(); got != path {
		t.Fatalf("target model = %q, want %q", got, path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != string(weights) {
		t.Fatalf("downloaded file = %q, err %v", data, err)
	}
	if !progressed {
		t.Error("no progress reported")
	}

	// A second load finds the cached file and skips the download.
	if err := l.Load(context.Background(), "tiny"); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	if requests != 1 {
		t.Fatalf("requests = %d, want 1 (cached)", requests)
	}
}

func TestLoadDownloadFailureLeavesNoFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	dir := t.TempDir()
	l := NewLoader(LoaderConfig{
		Provider: "whisper-cpp",
		Dir:      dir,
		BaseURL:  srv.URL,
		Target:   &fakeTarget{},
	})

	if err := l.Load(context.Background(), "tiny"); err == nil {
		t.Fatal("expected error for 404 download")
	}
	if _, err := os.Stat(filepath.Join(dir, "ggml-tiny.bin")); err == nil {
		t.Fatal("failed download left a model file behind")
	}
}
