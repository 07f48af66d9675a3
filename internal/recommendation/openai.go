package recommendation

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stewardrx/platform/internal/patient"
	apperrors "github.com/stewardrx/platform/internal/shared/errors"
)

const llmSystemPrompt = `You are a clinical antimicrobial stewardship assistant.
Given a patient summary, respond with a JSON object of the form
{"recommendations":[{"antibiotic":"","dose":"","frequency":"","route":"","rationale":""}]}
containing at most %d regimens ordered by preference. Respect the stated
creatinine clearance when choosing doses and never recommend drugs the
patient is allergic to. Respond with JSON only.`

// LLMProvider produces recommendations from an OpenAI chat model
type LLMProvider struct {
	client        *openai.Client
	model         string
	maxCandidates int
}

func NewLLMProvider(apiKey, model string, maxCandidates int) *LLMProvider {
	if maxCandidates <= 0 {
		maxCandidates = 3
	}
	return &LLMProvider{
		client:        openai.NewClient(apiKey),
		model:         model,
		maxCandidates: maxCandidates,
	}
}

func (p *LLMProvider) Name() string { return "llm" }

// Recommend asks the model for regimens and parses its JSON reply
func (p *LLMProvider) Recommend(ctx context.Context, pt *patient.Patient) (Result, error) {
	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0.1,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf(llmSystemPrompt, p.maxCandidates),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: patientSummary(pt),
			},
		},
	})
	if err != nil {
		return Result{Status: StatusError}, apperrors.Upstream("recommendation model", err)
	}
	if len(resp.Choices) == 0 {
		return Result{Status: StatusError}, apperrors.Upstream("recommendation model",
			fmt.Errorf("empty completion"))
	}

	var parsed struct {
		Recommendations []Candidate `json:"recommendations"`
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return Result{Status: StatusError}, fmt.Errorf("failed to parse model response: %w", err)
	}

	candidates := parsed.Recommendations
	if len(candidates) > p.maxCandidates {
		candidates = candidates[:p.maxCandidates]
	}
	if len(candidates) == 0 {
		return Result{Status: StatusNoMatch, Message: "model returned no regimens"}, nil
	}

	return Result{Status: StatusSuccess, Candidates: candidates}, nil
}
