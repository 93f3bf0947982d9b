package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultSpeechBaseURL = "https://speech.googleapis.com/v1/speech:recognize"
	defaultChatBaseURL   = "https://generativelanguage.googleapis.com/v1beta/models/gemini-2.5-flash:generateContent"
	defaultTTSBaseURL    = "https://texttospeech.googleapis.com/v1/text:synthesize"
	defaultTTSVoice      = "en-US-Neural2-F"
)

// RemoteClient talks to the Google speech and generative endpoints the app
// has always used, over plain JSON/HTTP. One client implements all three
// capabilities.
type RemoteClient struct {
	apiKey        string
	speechBaseURL string
	chatBaseURL   string
	ttsBaseURL    string
	client        *http.Client
}

// RemoteOption configures a RemoteClient.
type RemoteOption func(*RemoteClient)

// WithSpeechBaseURL overrides the speech-to-text endpoint.
func WithSpeechBaseURL(url string) RemoteOption {
	return func(c *RemoteClient) { c.speechBaseURL = url }
}

// WithChatBaseURL overrides the generative endpoint.
func WithChatBaseURL(url string) RemoteOption {
	return func(c *RemoteClient) { c.chatBaseURL = url }
}

// WithTTSBaseURL overrides the text-to-speech endpoint.
func WithTTSBaseURL(url string) RemoteOption {
	return func(c *RemoteClient) { c.ttsBaseURL = url }
}

// NewRemoteClient creates a client for the remote voice services.
func NewRemoteClient(apiKey string, opts ...RemoteOption) *RemoteClient {
	c := &RemoteClient{
		apiKey:        apiKey,
		speechBaseURL: defaultSpeechBaseURL,
		chatBaseURL:   defaultChatBaseURL,
		ttsBaseURL:    defaultTTSBaseURL,
		client:        &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type recognizeRequest struct {
	Config struct {
		Encoding        string `json:"encoding"`
		SampleRateHertz int    `json:"sampleRateHertz"`
		LanguageCode    string `json:"languageCode"`
	} `json:"config"`
	Audio struct {
		Content string `json:"content"`
	} `json:"audio"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Transcribe sends recorded audio to the speech endpoint and joins the
// alternatives into one transcript.
func (c *RemoteClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var req recognizeRequest
	req.Config.Encoding = "WEBM_OPUS"
	req.Config.SampleRateHertz = 48000
	req.Config.LanguageCode = "en-US"
	req.Audio.Content = base64.StdEncoding.EncodeToString(audio)

	var resp recognizeResponse
	if err := c.post(ctx, c.speechBaseURL, req, &resp); err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}

	var parts []string
	for _, r := range resp.Results {
		if len(r.Alternatives) > 0 {
			parts = append(parts, r.Alternatives[0].Transcript)
		}
	}
	return strings.Join(parts, "\n"), nil
}

type generatePart struct {
	Text string `json:"text"`
}

type generateContent struct {
	Role  string         `json:"role"`
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateRequest struct {
	Contents         []generateContent `json:"contents"`
	GenerationConfig generationConfig  `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Respond asks the generative endpoint for a concise answer grounded in the
// account's numeric context.
func (c *RemoteClient) Respond(ctx context.Context, text string, vc Context) (string, error) {
	req := generateRequest{
		Contents: []generateContent{{
			Role:  "user",
			Parts: []generatePart{{Text: buildPrompt(text, vc)}},
		}},
		GenerationConfig: generationConfig{
			Temperature:     0.7,
			MaxOutputTokens: 150,
		},
	}

	var resp generateResponse
	if err := c.post(ctx, c.chatBaseURL, req, &resp); err != nil {
		return "", fmt.Errorf("chat: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("chat: empty response")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

type synthesizeRequest struct {
	Input struct {
		Text string `json:"text"`
	} `json:"input"`
	Voice struct {
		LanguageCode string `json:"languageCode"`
		Name         string `json:"name"`
	} `json:"voice"`
	AudioConfig struct {
		AudioEncoding string `json:"audioEncoding"`
	} `json:"audioConfig"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesize converts text to MP3 audio via the text-to-speech endpoint.
func (c *RemoteClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	var req synthesizeRequest
	req.Input.Text = text
	req.Voice.LanguageCode = "en-US"
	req.Voice.Name = defaultTTSVoice
	req.AudioConfig.AudioEncoding = "MP3"

	var resp synthesizeResponse
	if err := c.post(ctx, c.ttsBaseURL, req, &resp); err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	if resp.AudioContent == "" {
		return nil, fmt.Errorf("synthesize: no audio generated")
	}
	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("synthesize: bad audio encoding: %w", err)
	}
	return audio, nil
}

func (c *RemoteClient) post(ctx context.Context, url string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	if c.apiKey != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		url += sep + "key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote returned %d: %s", resp.StatusCode, truncate(raw, 256))
	}
	return json.Unmarshal(raw, out)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}

func buildPrompt(question string, vc Context) string {
	var sb strings.Builder
	sb.WriteString("You are a helpful financial assistant for GKash payment app.\n")
	fmt.Fprintf(&sb, "User: %s\n", vc.Role)
	fmt.Fprintf(&sb, "Balance: ₱%s\n", vc.Balance)
	fmt.Fprintf(&sb, "Transactions: %d\n", vc.TransactionCount)
	if vc.TotalRevenue != nil {
		fmt.Fprintf(&sb, "Revenue: ₱%s\n", *vc.TotalRevenue)
	}
	sb.WriteString("\nRecent transactions:\n")
	direction := "to"
	if vc.Role == "merchant" {
		direction = "from"
	}
	for _, t := range vc.RecentTransactions {
		fmt.Fprintf(&sb, "- ₱%s %s %s\n", t.Amount, direction, t.OtherParty)
	}
	sb.WriteString("\nAnswer concisely in 1-2 sentences. Use Philippine peso (₱) for currency.\n")
	fmt.Fprintf(&sb, "\nQuestion: %s", question)
	return sb.String()
}
