package convert

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultLLMTimeout = 60 * time.Second

const captionPrompt = "Describe this image in detail as markdown. " +
	"Transcribe any visible text verbatim under an 'Extracted Text' section."

// remoteProvider captions images through an OpenAI-compatible vision
// endpoint. One provider instance per configured name so distinct models
// can sit behind distinct chain entries.
type remoteProvider struct {
	name    string
	baseURL string
	model   string
	apiKey  string
	client  *http.Client
}

func newRemoteProvider(name string, opts Options) *remoteProvider {
	timeout := defaultLLMTimeout
	if opts.LLMTimeout > 0 {
		timeout = time.Duration(opts.LLMTimeout) * time.Millisecond
	}
	model := opts.LLMModel
	if model == "" {
		model = name
	}
	apiKey := ""
	if opts.LLMAPIKeyEnv != "" {
		apiKey = os.Getenv(opts.LLMAPIKeyEnv)
	}
	return &remoteProvider{
		name:    name,
		baseURL: strings.TrimRight(opts.LLMBaseURL, "/"),
		model:   model,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *remoteProvider) Name() string { return p.name }

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (p *remoteProvider) Describe(ctx context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType,
		base64.StdEncoding.EncodeToString(raw))

	payload := chatRequest{
		Model: p.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: captionPrompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
			},
		}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("status %d: unparseable response", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg += ": " + firstLine(parsed.Error.Message)
		}
		return "", fmt.Errorf("%s", msg)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("response has no choices")
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("model returned empty description")
	}
	return fmt.Sprintf("# %s\n\n%s\n", filepath.Base(path), content), nil
}
