package identify

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jo-hoe/pokescan/internal/common"
)

// DefaultPrompt constrains the vision model to a single lowercase token or
// the sentinel "unknown", which post-processing maps to "no identification".
const DefaultPrompt = `Identify the Pokémon in this image.
Return ONLY the Pokémon's name in lowercase, nothing else.
If you cannot identify a Pokémon or if there is no Pokémon in the image, return 'unknown'.
Examples of valid responses: 'pikachu', 'charizard', 'mewtwo', 'unknown'`

const unknownSentinel = "unknown"

// Config holds the vision service settings injected at construction.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Prompt  string
	Timeout time.Duration
}

// Client identifies a species from image bytes via an external multimodal
// classification service.
type Client struct {
	config Config
	api    openai.Client
}

func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = "gpt-4o-mini"
	}
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithRequestTimeout(config.Timeout),
		// One upstream attempt per identification; the SDK's default policy
		// would retry failed requests twice.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		// The SDK resolves request paths relative to the base URL, so a
		// missing trailing slash would silently drop the version segment.
		baseURL := config.BaseURL
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		config: config,
		api:    openai.NewClient(opts...),
	}
}

// Identify sends the image plus the instruction prompt to the classification
// service and returns the canonical species name. An empty name with a nil
// error means "no identification" - an expected outcome, not a failure.
// Transport or service-side failures are returned as UpstreamUnavailable so
// callers can tell a provider outage apart from an unrecognized image.
func (c *Client) Identify(ctx context.Context, imageBytes []byte) (string, error) {
	dataURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(imageBytes))

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.config.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(c.config.Prompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
		MaxTokens: openai.Int(16),
	})
	if err != nil {
		slog.Error("identify: classification request failed", "error", err)
		return "", common.WrapError(common.KindUpstreamUnavailable, "classification service unavailable", err)
	}
	if len(completion.Choices) == 0 {
		slog.Error("identify: classification returned no choices")
		return "", common.NewError(common.KindUpstreamUnavailable, "classification service returned an empty response")
	}

	name := CleanName(completion.Choices[0].Message.Content)
	slog.Debug("identify: classification complete", "name", name)
	return name, nil
}

// CleanName normalizes a free-text model reply into a canonical species name:
// lowercase, alphabetic runs separated by single hyphens. Variant replies
// such as "Mr. Mime" or "mr mime" normalize to "mr-mime". Returns "" for the
// unknown sentinel or when nothing usable remains.
func CleanName(reply string) string {
	s := strings.ToLower(strings.TrimSpace(reply))

	// Keep only lowercase letters, hyphens and spaces.
	var filtered strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || r == '-' || r == ' ' {
			filtered.WriteRune(r)
		}
	}

	// Collapse runs of separators into a single hyphen.
	parts := strings.FieldsFunc(filtered.String(), func(r rune) bool {
		return r == ' ' || r == '-'
	})
	name := strings.Join(parts, "-")

	if name == "" || name == unknownSentinel {
		return ""
	}
	return name
}
