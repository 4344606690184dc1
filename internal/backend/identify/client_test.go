package identify

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jo-hoe/pokescan/internal/common"
)

func TestCleanName(t *testing.T) {
	tests := []struct {
		name     string
		reply    string
		expected string
	}{
		{"plain token", "pikachu", "pikachu"},
		{"surrounding whitespace", "  pikachu\n", "pikachu"},
		{"uppercase", "Charizard", "charizard"},
		{"dotted name", "Mr. Mime", "mr-mime"},
		{"spaced name", "mr mime", "mr-mime"},
		{"already hyphenated", "mr-mime", "mr-mime"},
		{"run of separators", "mr -  mime", "mr-mime"},
		{"trailing punctuation", "pikachu!", "pikachu"},
		{"digits stripped", "porygon2", "porygon"},
		{"unknown sentinel", "unknown", ""},
		{"unknown with whitespace", " Unknown ", ""},
		{"empty reply", "", ""},
		{"only punctuation", "?!.", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanName(tt.reply); got != tt.expected {
				t.Errorf("CleanName(%q) = %q, expected %q", tt.reply, got, tt.expected)
			}
		})
	}
}

func TestCleanName_TokenGrammar(t *testing.T) {
	// Any non-empty result must match the canonical name grammar.
	grammar := regexp.MustCompile(`^[a-z]+(-[a-z]+)*$`)

	replies := []string{
		"pikachu", "Mr. Mime!", "  HO-OH  ", "farfetch'd", "nidoran (female)",
		"it's a pikachu, I think", "123", "----", "Tapu Koko",
	}
	for _, reply := range replies {
		got := CleanName(reply)
		if got == "" {
			continue
		}
		if !grammar.MatchString(got) {
			t.Errorf("CleanName(%q) = %q, does not match token grammar", reply, got)
		}
	}
}

// chatResponder serves a minimal chat-completion payload. The SDK only
// decodes responses that declare a JSON content type, which
// NewJsonResponderOrPanic sets.
func chatResponder(content string) httpmock.Responder {
	reply := `{
		"id": "chatcmpl-test",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o-mini",
		"choices": [
			{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "` + content + `"}}
		]
	}`
	return httpmock.NewJsonResponderOrPanic(http.StatusOK, json.RawMessage(reply))
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
	return NewClient(Config{
		APIKey:  "test-key",
		BaseURL: "https://vision.test/v1",
	})
}

func TestClient_Identify_Success(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, "https://vision.test/v1/chat/completions",
		chatResponder("Pikachu"))

	name, err := client.Identify(context.Background(), []byte("fake-image-bytes"))

	require.NoError(t, err)
	assert.Equal(t, "pikachu", name)
}

func TestClient_Identify_UnknownSentinel(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, "https://vision.test/v1/chat/completions",
		chatResponder("unknown"))

	name, err := client.Identify(context.Background(), []byte("fake-image-bytes"))

	// No identification is an expected outcome, not an error.
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestClient_Identify_UpstreamFailure(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, "https://vision.test/v1/chat/completions",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error": {"message": "boom"}}`))

	name, err := client.Identify(context.Background(), []byte("fake-image-bytes"))

	require.Error(t, err)
	assert.Empty(t, name)
	assert.True(t, common.IsKind(err, common.KindUpstreamUnavailable),
		"a provider outage must surface as UpstreamUnavailable, not as NotRecognized")
}

func TestClient_Identify_SingleAttemptOnFailure(t *testing.T) {
	client := newTestClient(t)
	httpmock.RegisterResponder(http.MethodPost, "https://vision.test/v1/chat/completions",
		httpmock.NewStringResponder(http.StatusInternalServerError, `{"error": {"message": "boom"}}`))

	_, err := client.Identify(context.Background(), []byte("fake-image-bytes"))

	require.Error(t, err)
	assert.Equal(t, 1, httpmock.GetTotalCallCount(), "a failed identification must not be retried")
}
