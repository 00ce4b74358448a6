package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

// ErrNoAPIKey is returned by NewGeminiResolver when neither GEMINI_API_KEY
// nor GOOGLE_API_KEY is set.
var ErrNoAPIKey = errors.New("voice: no Gemini API key in environment")

// GeminiResolver asks a Gemini model to map a free-form phrase onto one of
// the supported intents. It is a fallback behind the keyword table: it
// never returns an error from Resolve, only an empty intent, so a flaky
// model can't take the voice pipeline down.
type GeminiResolver struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	supported map[string]struct{}
	prompt    string
	logger    *slog.Logger
}

// APIKeyFromEnv returns the Gemini API key, preferring GEMINI_API_KEY over
// GOOGLE_API_KEY.
func APIKeyFromEnv() string {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("GOOGLE_API_KEY")
}

// NewGeminiResolver dials the Gemini API. The intents slice is the closed
// set of intents the model may return; anything else is discarded.
func NewGeminiResolver(ctx context.Context, model string, intents []string, logger *slog.Logger) (*GeminiResolver, error) {
	key := APIKeyFromEnv()
	if key == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(key))
	if err != nil {
		return nil, fmt.Errorf("voice: gemini client: %w", err)
	}

	supported := make(map[string]struct{}, len(intents))
	names := make([]string, 0, len(intents))
	for _, intent := range intents {
		if _, ok := supported[intent]; ok {
			continue
		}
		supported[intent] = struct{}{}
		names = append(names, intent)
	}
	sort.Strings(names)

	return &GeminiResolver{
		client:    client,
		model:     client.GenerativeModel(model),
		supported: supported,
		prompt: "Convert the user command into ONE intent from this list: " +
			strings.Join(names, ", ") +
			". Return ONLY JSON like {\"intent\": \"close_tab\"}. Command: ",
		logger: logger.With("component", "voice.gemini"),
	}, nil
}

// Resolve sends the phrase to the model and extracts the intent from its
// JSON reply. Errors and unsupported intents resolve to "".
func (g *GeminiResolver) Resolve(ctx context.Context, phrase string) (string, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(g.prompt+phrase))
	if err != nil {
		g.logger.Warn("generate failed", "error", err)
		return "", nil
	}

	intent := ParseIntentReply(replyText(resp))
	if intent == "" {
		return "", nil
	}
	if _, ok := g.supported[intent]; !ok {
		g.logger.Debug("unsupported intent from model", "intent", intent)
		return "", nil
	}
	return intent, nil
}

// Close releases the underlying API client.
func (g *GeminiResolver) Close() error {
	return g.client.Close()
}

func replyText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				b.WriteString(string(text))
			}
		}
	}
	return b.String()
}

// ParseIntentReply scans a model reply for the outermost JSON object and
// returns its "intent" field, or "" if the reply doesn't parse.
func ParseIntentReply(reply string) string {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return ""
	}
	var payload struct {
		Intent string `json:"intent"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Intent)
}
