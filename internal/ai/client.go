package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"learnloop/internal/models"
	"learnloop/internal/promptbank"
)

// Config holds the collaborator configuration.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements QuestionGenerator and AnswerGrader over an
// OpenAI-compatible chat completion API.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	prompts *promptbank.Bank
}

// NewClient creates a new collaborator client.
func NewClient(cfg Config, prompts *promptbank.Bank) *Client {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   model,
		timeout: timeout,
		prompts: prompts,
	}
}

// generationOutput is the raw generator response before mapping.
type generationOutput struct {
	Questions []struct {
		ItemID        int64  `json:"item_id"`
		QuestionText  string `json:"question_text"`
		QuestionType  string `json:"question_type"`
		CorrectAnswer string `json:"correct_answer"`
	} `json:"questions"`
	Encouragement string `json:"encouragement"`
}

// GenerateQuestions asks the model for one recall question per item.
func (c *Client) GenerateQuestions(ctx context.Context, items []models.ReviewItem, level string) (*GenerationResult, error) {
	var itemsText strings.Builder
	for _, item := range items {
		fmt.Fprintf(&itemsText, "- ID: %d, Deck: %s, Content: %s", item.ID, item.Deck, item.Prompt)
		if item.Explanation != "" {
			fmt.Fprintf(&itemsText, ", Explanation: %s", item.Explanation)
		}
		if item.Example != "" {
			fmt.Fprintf(&itemsText, ", Example: %s", item.Example)
		}
		itemsText.WriteString("\n")
	}

	userMsg := c.prompts.GenerateQuestions.Render(map[string]string{
		"level":      level,
		"items_text": itemsText.String(),
	})

	var raw generationOutput
	if err := c.completeJSON(ctx, c.prompts.GenerateQuestions.System, userMsg, 0.5, &raw); err != nil {
		return nil, err
	}

	result := &GenerationResult{Encouragement: raw.Encouragement}
	for _, q := range raw.Questions {
		result.Questions = append(result.Questions, models.Question{
			ItemID:        q.ItemID,
			Text:          q.QuestionText,
			Type:          q.QuestionType,
			CorrectAnswer: q.CorrectAnswer,
		})
	}

	if len(result.Questions) == 0 {
		return nil, fmt.Errorf("generator returned no questions")
	}
	return result, nil
}

// gradingOutput is the raw grader response before mapping.
type gradingOutput struct {
	OverallScore float64 `json:"overall_score"`
	Evaluations  []struct {
		ItemID int64   `json:"item_id"`
		Score  float64 `json:"score"`
	} `json:"evaluations"`
	WeakAreas     []string `json:"weak_areas"`
	Encouragement string   `json:"encouragement"`
}

// GradeAnswers asks the model to score the learner's answers. All scores are
// clamped into [0, 100] before they reach the scheduler.
func (c *Client) GradeAnswers(ctx context.Context, questions []models.Question, answers []string, level string) (*GradingResult, error) {
	var qaText strings.Builder
	for i, q := range questions {
		answer := "(no answer)"
		if i < len(answers) {
			answer = answers[i]
		}
		fmt.Fprintf(&qaText, "Question (item_id=%d): %s\n", q.ItemID, q.Text)
		fmt.Fprintf(&qaText, "  Type: %s\n", q.Type)
		fmt.Fprintf(&qaText, "  Correct answer: %s\n", q.CorrectAnswer)
		fmt.Fprintf(&qaText, "  Student answer: %s\n\n", answer)
	}

	userMsg := c.prompts.EvaluateAnswers.Render(map[string]string{
		"level":   level,
		"qa_text": qaText.String(),
	})

	var raw gradingOutput
	if err := c.completeJSON(ctx, c.prompts.EvaluateAnswers.System, userMsg, 0.3, &raw); err != nil {
		return nil, err
	}

	result := &GradingResult{
		OverallScore:  clampScore(raw.OverallScore),
		WeakAreas:     raw.WeakAreas,
		Encouragement: raw.Encouragement,
	}
	for _, ev := range raw.Evaluations {
		result.PerItem = append(result.PerItem, models.ItemScore{
			ItemID: ev.ItemID,
			Score:  clampScore(ev.Score),
		})
	}

	if len(result.PerItem) == 0 {
		return nil, fmt.Errorf("grader returned no evaluations")
	}
	return result, nil
}

// completeJSON runs one chat completion with a JSON response format and
// unmarshals the reply into out. The call carries a bounded timeout.
func (c *Client) completeJSON(ctx context.Context, system, user string, temperature float32, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion returned no choices")
	}

	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), out); err != nil {
		return fmt.Errorf("failed to parse model response: %w", err)
	}
	return nil
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
