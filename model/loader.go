package model

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"dikta/log"
)

// Target is the piece of the transcriber the loader points at a prepared
// model.
type Target interface {
	SetModel(name string)
}

// Loader prepares models asynchronously on the coordinator's behalf. For
// whisper-cpp it downloads ggml weights into the cache directory; for API
// providers it resolves the identifier onto the provider's model name.
type Loader struct {
	provider string
	dir      string
	baseURL  string // overrides the catalog URLs, for tests and mirrors
	client   *http.Client
	target   Target
	progress func(id string, pct int)
}

type LoaderConfig struct {
	Provider string
	Dir      string // ggml cache directory, whisper-cpp only
	BaseURL  string
	Target   Target
	Progress func(id string, pct int)
}

func NewLoader(cfg LoaderConfig) *Loader {
	return &Loader{
		provider: cfg.Provider,
		dir:      cfg.Dir,
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: 30 * time.Minute},
		target:   cfg.Target,
		progress: cfg.Progress,
	}
}

// Load prepares one model and points the target at it. It blocks until the
// model is usable or the preparation failed; the coordinator calls it off
// its dispatch path.
func (l *Loader) Load(ctx context.Context, id string) error {
	info, ok := Lookup(id)
	if !ok {
		return fmt.Errorf("unknown model %q (have %v)", id, IDs())
	}
	log.ModelLoadStart(id, l.provider)
	started := time.Now()

	if l.provider == "whisper-cpp" {
		path, err := l.ensureDownloaded(ctx, info)
		if err != nil {
			log.ModelLoadFailed(id, err)
			return err
		}
		l.target.SetModel(path)
		log.ModelLoadDone(id, time.Since(started))
		return nil
	}

	name := info.RemoteName(l.provider)
	if name == "" {
		err := fmt.Errorf("provider %s does not serve model %q", l.provider, id)
		log.ModelLoadFailed(id, err)
		return err
	}
	l.target.SetModel(name)
	log.ModelLoadDone(id, time.Since(started))
	return nil
}

func (l *Loader) modelPath(info Info) string {
	return filepath.Join(l.dir, fmt.Sprintf("ggml-%s.bin", info.ID))
}

func (l *Loader) ensureDownloaded(ctx context.Context, info Info) (string, error) {
	path := l.modelPath(info)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("create model dir: %w", err)
	}

	url := info.URL
	if l.baseURL != "" {
		url = l.baseURL + "/ggml-" + info.ID + ".bin"
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("downloading %s: %w", info.ID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading %s: http status %d", info.ID, resp.StatusCode)
	}

	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	var downloaded int64
	lastPct := -1
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				return "", fmt.Errorf("write model file: %w", werr)
			}
			downloaded += int64(n)
			if l.progress != nil && info.Size > 0 {
				pct := int(downloaded * 100 / info.Size)
				if pct > 100 {
					pct = 100
				}
				if pct != lastPct {
					lastPct = pct
					l.progress(info.ID, pct)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read model download: %w", err)
		}
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return "", fmt.Errorf("rename model file: %w", err)
	}
	return path, nil
}
