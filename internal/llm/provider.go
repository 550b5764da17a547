// Package llm generates music suggestions and listening-habit analysis
// through a configurable model provider.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"vibez/internal/core"
)

const (
	moodSuggestionCount  = 8
	defaultPlaylistCount = 10

	maxTokensSuggestions = 1000
	maxTokensAnalysis    = 500
)

// completionClient is the minimal surface each model backend exposes: one
// prompt in, one JSON document out.
type completionClient interface {
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

type Provider struct {
	config *core.LLMConfig
	logger *zap.Logger
	client completionClient
}

func NewProvider(config *core.LLMConfig, logger *zap.Logger) (*Provider, error) {
	var client completionClient
	var err error

	switch config.Provider {
	case "openai":
		client, err = NewOpenAIClient(config, logger)
	case "anthropic":
		client, err = NewAnthropicClient(config, logger)
	case "ollama":
		client, err = NewOllamaClient(config, logger)
	case "none", "":
		return &Provider{
			config: config,
			logger: logger,
			client: &NoOpClient{},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", config.Provider)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", config.Provider, err)
	}

	return &Provider{
		config: config,
		logger: logger,
		client: client,
	}, nil
}

type suggestionsResponse struct {
	Songs []struct {
		Title  string `json:"title"`
		Artist string `json:"artist"`
		Album  string `json:"album,omitempty"`
		Reason string `json:"reason,omitempty"`
	} `json:"songs"`
}

type analysisResponse struct {
	TopGenres       []string `json:"topGenres"`
	MoodProfile     string   `json:"moodProfile"`
	Recommendations struct {
		Similar []string `json:"similar"`
		Expand  []string `json:"expand"`
	} `json:"recommendations"`
}

// MoodRecommendations asks the model for songs matching a free-text mood.
func (p *Provider) MoodRecommendations(ctx context.Context, mood string) ([]core.Suggestion, error) {
	if strings.TrimSpace(mood) == "" {
		return nil, fmt.Errorf("empty mood provided")
	}

	prompt := fmt.Sprintf(`Generate a list of %d songs that match the mood: %s.

Respond with a JSON object in this exact format:
{
  "songs": [
    {
      "title": "Song Title",
      "artist": "Artist Name",
      "album": "Album Name"
    }
  ]
}

Rules:
1. Only include real songs that exist
2. Be specific and varied in your recommendations
3. Respond with valid JSON only`, moodSuggestionCount, mood)

	content, err := p.client.Complete(ctx, prompt, maxTokensSuggestions)
	if err != nil {
		return nil, err
	}

	suggestions, err := p.parseSuggestions(content)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("Mood suggestions generated",
		zap.String("mood", mood),
		zap.Int("count", len(suggestions)))

	return suggestions, nil
}

// AnalyzeListeningHabits summarizes the user's taste from recent tracks.
func (p *Provider) AnalyzeListeningHabits(ctx context.Context, tracks []core.Track) (*core.TasteProfile, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("no tracks to analyze")
	}

	lines := make([]string, 0, len(tracks))
	for _, track := range tracks {
		lines = append(lines, fmt.Sprintf("%s by %s", track.Name, strings.Join(track.Artists, ", ")))
	}

	prompt := fmt.Sprintf(`Analyze these tracks and provide insights about the user's music taste: %s

Respond with a JSON object in this exact format:
{
  "topGenres": ["genre1", "genre2", "genre3"],
  "moodProfile": "description of the overall mood",
  "recommendations": {
    "similar": ["artist1", "artist2"],
    "expand": ["artist3", "artist4"]
  }
}

Rules:
1. "similar" lists artists close to what the user already plays
2. "expand" lists artists that broaden the user's taste
3. Respond with valid JSON only`, strings.Join(lines, ", "))

	content, err := p.client.Complete(ctx, prompt, maxTokensAnalysis)
	if err != nil {
		return nil, err
	}

	var response analysisResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		p.logger.Error("Failed to parse analysis response", zap.Error(err), zap.String("content", content))
		return nil, fmt.Errorf("failed to parse analysis response: %w", err)
	}

	return &core.TasteProfile{
		TopGenres:      response.TopGenres,
		MoodProfile:    response.MoodProfile,
		SimilarArtists: response.Recommendations.Similar,
		ExpandArtists:  response.Recommendations.Expand,
	}, nil
}

// ThemedPlaylist asks the model for a playlist built around a theme.
func (p *Provider) ThemedPlaylist(ctx context.Context, theme string, count int) ([]core.Suggestion, error) {
	if strings.TrimSpace(theme) == "" {
		return nil, fmt.Errorf("empty theme provided")
	}
	if count <= 0 {
		count = defaultPlaylistCount
	}

	prompt := fmt.Sprintf(`Generate a themed playlist with %d songs for the theme: "%s".

Respond with a JSON object in this exact format:
{
  "songs": [
    {
      "title": "Song Title",
      "artist": "Artist Name",
      "reason": "a short reason why it fits the theme"
    }
  ]
}

Rules:
1. Only include real songs that exist
2. Be creative and diverse in your selections
3. Respond with valid JSON only`, count, theme)

	content, err := p.client.Complete(ctx, prompt, maxTokensSuggestions)
	if err != nil {
		return nil, err
	}

	suggestions, err := p.parseSuggestions(content)
	if err != nil {
		return nil, err
	}
	if len(suggestions) > count {
		suggestions = suggestions[:count]
	}

	p.logger.Debug("Themed playlist generated",
		zap.String("theme", theme),
		zap.Int("count", len(suggestions)))

	return suggestions, nil
}

func (p *Provider) parseSuggestions(content string) ([]core.Suggestion, error) {
	var response suggestionsResponse
	if err := json.Unmarshal([]byte(content), &response); err != nil {
		p.logger.Error("Failed to parse suggestions response", zap.Error(err), zap.String("content", content))
		return nil, fmt.Errorf("failed to parse suggestions response: %w", err)
	}

	suggestions := make([]core.Suggestion, 0, len(response.Songs))
	for _, song := range response.Songs {
		suggestions = append(suggestions, core.Suggestion{
			Title:  song.Title,
			Artist: song.Artist,
			Album:  song.Album,
			Reason: song.Reason,
		})
	}
	return suggestions, nil
}

type NoOpClient struct{}

func (n *NoOpClient) Complete(_ context.Context, _ string, _ int) (string, error) {
	return "", fmt.Errorf("LLM provider not configured")
}
