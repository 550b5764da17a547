package llm

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"vibez/internal/core"
)

type stubClient struct {
	content string
	err     error
	prompts []string
}

func (s *stubClient) Complete(_ context.Context, prompt string, _ int) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.content, s.err
}

func newStubProvider(content string) (*Provider, *stubClient) {
	client := &stubClient{content: content}
	return &Provider{
		config: &core.LLMConfig{Provider: "openai"},
		logger: zap.NewNop(),
		client: client,
	}, client
}

func TestNewProvider_NoneIsNoOp(t *testing.T) {
	provider, err := NewProvider(&core.LLMConfig{Provider: "none"}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewProvider() error: %v", err)
	}

	if _, err := provider.MoodRecommendations(context.Background(), "happy"); err == nil {
		t.Error("MoodRecommendations() with no provider should fail")
	}
}

func TestNewProvider_UnsupportedProvider(t *testing.T) {
	if _, err := NewProvider(&core.LLMConfig{Provider: "bogus"}, zap.NewNop()); err == nil {
		t.Error("NewProvider() should reject unsupported providers")
	}
}

func TestNewProvider_RequiresAPIKey(t *testing.T) {
	for _, provider := range []string{"openai", "anthropic"} {
		if _, err := NewProvider(&core.LLMConfig{Provider: provider}, zap.NewNop()); err == nil {
			t.Errorf("NewProvider(%s) without API key should fail", provider)
		}
	}
}

func TestMoodRecommendations_ParsesSuggestions(t *testing.T) {
	provider, _ := newStubProvider(`{"songs":[
		{"title":"Here Comes the Sun","artist":"The Beatles","album":"Abbey Road"},
		{"title":"Walking on Sunshine","artist":"Katrina and the Waves"}
	]}`)

	suggestions, err := provider.MoodRecommendations(context.Background(), "happy")
	if err != nil {
		t.Fatalf("MoodRecommendations() error: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("MoodRecommendations() = %d suggestions, expected 2", len(suggestions))
	}
	if suggestions[0].Title != "Here Comes the Sun" || suggestions[0].Album != "Abbey Road" {
		t.Errorf("unexpected first suggestion: %+v", suggestions[0])
	}
}

func TestMoodRecommendations_EmptyMood(t *testing.T) {
	provider, client := newStubProvider(`{"songs":[]}`)

	if _, err := provider.MoodRecommendations(context.Background(), "  "); err == nil {
		t.Error("MoodRecommendations() with empty mood should fail")
	}
	if len(client.prompts) != 0 {
		t.Error("empty mood must not reach the model")
	}
}

func TestMoodRecommendations_MalformedResponse(t *testing.T) {
	provider, _ := newStubProvider(`here are some songs!`)

	if _, err := provider.MoodRecommendations(context.Background(), "happy"); err == nil {
		t.Error("MoodRecommendations() should fail on a non-JSON response")
	}
}

func TestAnalyzeListeningHabits_ParsesProfile(t *testing.T) {
	provider, _ := newStubProvider(`{
		"topGenres": ["indie", "electronic", "jazz"],
		"moodProfile": "mellow with energetic bursts",
		"recommendations": {
			"similar": ["Bonobo"],
			"expand": ["Alfa Mist", "Nala Sinephro"]
		}
	}`)

	profile, err := provider.AnalyzeListeningHabits(context.Background(), []core.Track{
		{Name: "Kerala", Artists: []string{"Bonobo"}},
	})
	if err != nil {
		t.Fatalf("AnalyzeListeningHabits() error: %v", err)
	}

	if len(profile.TopGenres) != 3 || profile.TopGenres[0] != "indie" {
		t.Errorf("unexpected genres: %v", profile.TopGenres)
	}
	if profile.MoodProfile == "" {
		t.Error("MoodProfile should be set")
	}
	if len(profile.SimilarArtists) != 1 || len(profile.ExpandArtists) != 2 {
		t.Errorf("unexpected artist lists: %+v", profile)
	}
}

func TestAnalyzeListeningHabits_NoTracks(t *testing.T) {
	provider, _ := newStubProvider(`{}`)

	if _, err := provider.AnalyzeListeningHabits(context.Background(), nil); err == nil {
		t.Error("AnalyzeListeningHabits() with no tracks should fail")
	}
}

func TestThemedPlaylist_TruncatesToCount(t *testing.T) {
	provider, _ := newStubProvider(`{"songs":[
		{"title":"One","artist":"A","reason":"fits"},
		{"title":"Two","artist":"B","reason":"fits"},
		{"title":"Three","artist":"C","reason":"fits"}
	]}`)

	suggestions, err := provider.ThemedPlaylist(context.Background(), "road trip", 2)
	if err != nil {
		t.Fatalf("ThemedPlaylist() error: %v", err)
	}
	if len(suggestions) != 2 {
		t.Errorf("ThemedPlaylist() = %d suggestions, expected truncation to 2", len(suggestions))
	}
	if suggestions[0].Reason == "" {
		t.Error("suggestions should carry the theme reason")
	}
}

func TestThemedPlaylist_DefaultCountInPrompt(t *testing.T) {
	provider, client := newStubProvider(`{"songs":[]}`)

	if _, err := provider.ThemedPlaylist(context.Background(), "road trip", 0); err != nil {
		t.Fatalf("ThemedPlaylist() error: %v", err)
	}

	if len(client.prompts) != 1 {
		t.Fatal("expected one model call")
	}
	if !strings.Contains(client.prompts[0], "10 songs") {
		t.Errorf("prompt should request the default count, got: %s", client.prompts[0])
	}
}
