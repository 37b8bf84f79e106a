package matching

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/skillswap/skillswap/internal/model"
)

// DefaultGeminiModel is used when no model name is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the subset of the genai client used by GeminiScorer.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// NewGeminiClient creates a Gemini API client.
func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}

// GeminiScorer asks a hosted model for the shortlist in a single prompt
// holding the requester's skills and the serialized pool.
//
// Output is sampled at a non-zero temperature by default, so two calls with
// the same input may rank differently or pick different candidates. Only the
// structure of the result is stable.
type GeminiScorer struct {
	models      ContentGenerator
	model       string
	temperature float32
}

// NewGeminiScorer wraps a content generator, typically client.Models.
func NewGeminiScorer(models ContentGenerator, modelName string, temperature float32) *GeminiScorer {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiScorer{
		models:      models,
		model:       modelName,
		temperature: temperature,
	}
}

// Name implements Scorer.
func (s *GeminiScorer) Name() string { return "gemini" }

// Rank implements Scorer. Every failure wraps ErrBackend.
func (s *GeminiScorer) Rank(ctx context.Context, q Query) ([]model.Match, error) {
	prompt, err := buildPrompt(q)
	if err != nil {
		return nil, fmt.Errorf("%w: build prompt: %w", ErrBackend, err)
	}

	temperature := s.temperature
	config := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	}
	contents := []*genai.Content{{
		Role:  "user",
		Parts: []*genai.Part{{Text: prompt}},
	}}

	resp, err := s.models.GenerateContent(ctx, s.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("%w: generate content: %w", ErrBackend, err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty model response", ErrBackend)
	}

	matches, err := parseMatches(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBackend, err)
	}
	return matches, nil
}

type promptCandidate struct {
	Email      string `json:"email"`
	TeachSkill string `json:"teach_skill"`
	LearnSkill string `json:"learn_skill"`
}

func buildPrompt(q Query) (string, error) {
	candidates := make([]promptCandidate, 0, len(q.Pool))
	for _, p := range q.Pool {
		if p == nil {
			continue
		}
		candidates = append(candidates, promptCandidate{
			Email:      p.Email,
			TeachSkill: p.TeachSkill,
			LearnSkill: p.LearnSkill,
		})
	}

	pool, err := json.Marshal(candidates)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`You are a skill matcher for a skill-swap community.
A user can teach %q and wants to learn %q.

Candidates (JSON):
%s

Pick at most %d candidates who best complement the user. A strong match can teach what the user wants to learn and/or wants to learn what the user can teach; candidates matching in both directions rank first.
Use only emails from the candidate list. If nobody is relevant, return an empty list.
Respond with JSON only, no markdown, in exactly this shape:
{"matches":[{"email":"candidate email","rationale":"one short sentence"}]}
Order the matches best first.`, q.TeachSkill, q.LearnSkill, pool, model.MaxMatches), nil
}

// responseText concatenates the text parts of the first candidate.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range c.Content.Parts {
			if part != nil {
				b.WriteString(part.Text)
			}
		}
		return strings.TrimSpace(b.String())
	}
	return ""
}

type modelMatch struct {
	Email     string `json:"email"`
	Rationale string `json:"rationale"`
}

var errUnparseable = errors.New("model response is not the expected JSON")

// parseMatches accepts {"matches":[...]} or a bare array, optionally
// wrapped in a markdown code fence.
func parseMatches(text string) ([]model.Match, error) {
	clean := cleanJSON(text)

	var raw []modelMatch
	if strings.HasPrefix(clean, "[") {
		if err := json.Unmarshal([]byte(clean), &raw); err != nil {
			return nil, fmt.Errorf("%w: %w", errUnparseable, err)
		}
	} else {
		var envelope struct {
			Matches *[]modelMatch `json:"matches"`
		}
		if err := json.Unmarshal([]byte(clean), &envelope); err != nil {
			return nil, fmt.Errorf("%w: %w", errUnparseable, err)
		}
		if envelope.Matches == nil {
			return nil, fmt.Errorf("%w: missing matches field", errUnparseable)
		}
		raw = *envelope.Matches
	}

	matches := make([]model.Match, 0, len(raw))
	for _, m := range raw {
		if strings.TrimSpace(m.Email) == "" {
			continue
		}
		matches = append(matches, model.Match{
			CandidateEmail: strings.TrimSpace(m.Email),
			Rationale:      strings.TrimSpace(m.Rationale),
		})
	}
	return matches, nil
}

// cleanJSON strips a ```json or ``` fence around the payload.
func cleanJSON(input string) string {
	clean := strings.TrimSpace(input)

	if strings.HasPrefix(clean, "```json") {
		clean = strings.TrimPrefix(clean, "```json")
	} else if strings.HasPrefix(clean, "```") {
		clean = strings.TrimPrefix(clean, "```")
	}
	clean = strings.TrimLeft(clean, "\r\n")
	clean = strings.TrimSuffix(strings.TrimSpace(clean), "```")

	return strings.TrimSpace(clean)
}
