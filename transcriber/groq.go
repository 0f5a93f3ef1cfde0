package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"dikta/encoder"
)

const groqAPIURL = "https://api.groq.com/openai/v1/audio/transcriptions"

type Groq struct {
	apiKey string
	client *http.Client

	mu    sync.Mutex
	model string
	lang  string
}

func NewGroq(apiKey string) *Groq {
	return &Groq{
		apiKey: apiKey,
		client: &http.Client{Timeout: 60 * time.Second},
		model:  "whisper-large-v3-turbo",
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) SetModel(name string) {
	g.mu.Lock()
	g.model = name
	g.mu.Unlock()
}

func (g *Groq) SetLanguage(lang string) {
	g.mu.Lock()
	g.lang = lang
	g.mu.Unlock()
}

type groqResponse struct {
	Text string `json:"text"`
}

func (g *Groq) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	g.mu.Lock()
	model, lang := g.model, g.lang
	g.mu.Unlock()

	flacData, err := encoder.EncodePCM(pcm)
	if err != nil {
		return "", fmt.Errorf("encoding audio: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(flacData); err != nil {
		return "", err
	}
	writer.WriteField("model", model)
	writer.WriteField("response_format", "json")
	if lang != "" {
		writer.WriteField("language", lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", groqAPIURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("groq API error %d: %s", resp.StatusCode, string(respBody))
	}

	var gResp groqResponse
	if err := json.Unmarshal(respBody, &gResp); err != nil {
		return "", fmt.Errorf("groq response parse error: %w", err)
	}
	return gResp.Text, nil
}
