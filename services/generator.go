package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	appContext "github.com/alphabatem/common/context"
	"github.com/bytedance/sonic"
	"github.com/densematrix/study_api/config"
	"github.com/densematrix/study_api/dto"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const GENERATOR_SVC = "generator_svc"

const (
	generatorMaxTokens   = 4000
	generatorTemperature = 0.7
	maxErrorBodyBytes    = 512
)

var languageNames = map[string]string{
	"en": "English",
	"zh": "Chinese (Simplified)",
	"ja": "Japanese",
	"de": "German",
	"fr": "French",
	"ko": "Korean",
	"es": "Spanish",
}

// GenerationRequest is what the quiz workflow asks the generator for.
type GenerationRequest struct {
	Topic        string
	NumQuestions int
	Difficulty   string
	Language     string
}

// GeneratorService calls an OpenAI-compatible chat completion endpoint and turns
// the reply into quiz questions.
type GeneratorService struct {
	appContext.DefaultService

	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type generatedQuestion struct {
	Type          string   `json:"type"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

func NewGeneratorService(cfg config.Config, client *http.Client) *GeneratorService {
	if client == nil {
		client = &http.Client{Timeout: cfg.GeneratorTimeout}
	}
	return &GeneratorService{
		baseURL: cfg.GeneratorURL,
		apiKey:  cfg.GeneratorKey,
		model:   cfg.GeneratorModel,
		client:  client,
	}
}

func (svc GeneratorService) Id() string {
	return GENERATOR_SVC
}

func (svc *GeneratorService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *GeneratorService) Start() error {
	if svc.apiKey == "" {
		log.Warn().Msg("LLM_PROXY_KEY is empty, quiz generation will fail")
	}
	return nil
}

func (svc *GeneratorService) Shutdown() {}

// Generate returns ErrGenerationFailed for transport and upstream failures and
// ErrMalformedGenerationOutput when the reply cannot be read as questions.
func (svc *GeneratorService) Generate(ctx context.Context, req GenerationRequest) ([]dto.QuizQuestion, error) {
	body, err := sonic.Marshal(chatRequest{
		Model:       svc.model,
		Messages:    []chatMessage{{Role: "user", Content: buildPrompt(req)}},
		MaxTokens:   generatorMaxTokens,
		Temperature: generatorTemperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrGenerationFailed, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, svc.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+svc.apiKey)

	resp, err := svc.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGenerationFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: upstream status %d: %s", ErrGenerationFailed, resp.StatusCode, truncate(raw, maxErrorBodyBytes))
	}

	var completion chatResponse
	if err := sonic.Unmarshal(raw, &completion); err != nil {
		return nil, fmt.Errorf("%w: decode completion: %v", ErrMalformedGenerationOutput, err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: completion has no choices", ErrMalformedGenerationOutput)
	}

	return ParseQuestions(completion.Choices[0].Message.Content)
}

// ParseQuestions extracts the JSON array embedded in content, assigns each
// question a short id and letters its options in order.
func ParseQuestions(content string) ([]dto.QuizQuestion, error) {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start == -1 || end < start {
		return nil, fmt.Errorf("%w: no JSON array in reply", ErrMalformedGenerationOutput)
	}

	var generated []generatedQuestion
	if err := sonic.UnmarshalString(content[start:end+1], &generated); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGenerationOutput, err)
	}
	if len(generated) == 0 {
		return nil, fmt.Errorf("%w: empty question list", ErrMalformedGenerationOutput)
	}

	questions := make([]dto.QuizQuestion, 0, len(generated))
	for i, g := range generated {
		if err := g.validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrMalformedGenerationOutput, i, err)
		}

		q := dto.QuizQuestion{
			ID:            uuid.NewString()[:8],
			Type:          g.Type,
			Question:      g.Question,
			CorrectAnswer: g.CorrectAnswer,
			Explanation:   g.Explanation,
		}
		for j, text := range g.Options {
			q.Options = append(q.Options, dto.QuizOption{ID: optionLetter(j), Text: text})
		}
		questions = append(questions, q)
	}

	return questions, nil
}

func (g generatedQuestion) validate() error {
	switch g.Type {
	case dto.QuestionTypeMultipleChoice, dto.QuestionTypeTrueFalse, dto.QuestionTypeFillBlank:
	default:
		return fmt.Errorf("unknown type %q", g.Type)
	}
	if strings.TrimSpace(g.Question) == "" {
		return fmt.Errorf("missing question text")
	}
	if strings.TrimSpace(g.CorrectAnswer) == "" {
		return fmt.Errorf("missing correct answer")
	}
	return nil
}

// optionLetter maps 0 to "A", 1 to "B" and so on.
func optionLetter(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return fmt.Sprintf("%c%d", 'A'+i%26, i/26)
}

func buildPrompt(req GenerationRequest) string {
	lang, ok := languageNames[req.Language]
	if !ok {
		lang = languageNames[dto.DefaultLanguage]
	}

	return fmt.Sprintf(`Generate exactly %d quiz questions about "%s" at %s difficulty level.

Output language: %s

Requirements:
- Mix question types: multiple choice (4 options), true/false, and fill-in-the-blank
- Questions should test understanding, not just recall
- Provide clear explanations for each answer
- Make sure all content is in %s

Return a JSON array with this exact structure:
[
  {"type": "multiple_choice", "question": "Question text here?", "options": ["Option A", "Option B", "Option C", "Option D"], "correct_answer": "A", "explanation": "Why this is correct"},
  {"type": "true_false", "question": "Statement to evaluate?", "options": ["True", "False"], "correct_answer": "True", "explanation": "Explanation"},
  {"type": "fill_blank", "question": "Complete the sentence: The ___ is...", "options": null, "correct_answer": "answer", "explanation": "Explanation"}
]

Return ONLY the JSON array, no other text.`, req.NumQuestions, req.Topic, req.Difficulty, lang, lang)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
