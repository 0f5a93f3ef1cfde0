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

const openAIAPIURL = "https://api.openai.com/v1/audio/transcriptions"

// OpenAI speaks the Whisper transcription endpoint. A custom base URL lets
// it talk to any OpenAI-compatible server, including self-hosted whisper
// servers that accept size-named models.
type OpenAI struct {
	apiKey string
	apiURL string
	client *http.Client

	mu    sync.Mutex
	model string
	lang  string
}

func NewOpenAI(apiKey, apiURL string) *OpenAI {
	if apiURL == "" {
		apiURL = openAIAPIURL
	}
	return &OpenAI{
		apiKey: apiKey,
		apiURL: apiURL,
		client: &http.Client{Timeout: 60 * time.Second},
		model:  "whisper-1",
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) SetModel(name string) {
	o.mu.Lock()
	o.model = name
	o.mu.Unlock()
}

func (o *OpenAI) SetLanguage(lang string) {
	o.mu.Lock()
	o.lang = lang
	o.mu.Unlock()
}

func (o *OpenAI) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	o.mu.Lock()
	model, lang := o.model, o.lang
	o.mu.Unlock()

	flacData, err := encoder.EncodePCM(pcm)
	if err != nil {
		return "", fmt.Errorf("encoding audio: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.flac")
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(flacData); err != nil {
		return "", fmt.Errorf("write audio data: %w", err)
	}
	writer.WriteField("model", model)
	// The API rejects "auto"; an absent field means auto-detect.
	if lang != "" && lang != "auto" {
		writer.WriteField("language", lang)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, "POST", o.apiURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+o.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("openai API error %d: %s", resp.StatusCode, string(respBody))
	}

	var oResp struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(respBody, &oResp); err != nil {
		return "", fmt.Errorf("openai response parse error: %w", err)
	}
	return oResp.Text, nil
}
