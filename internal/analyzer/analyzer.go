package analyzer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"github.com/codebugsleuth/bughunter/internal/config"
)

// Issue is a single finding in an analysis report.
type Issue struct {
	Type        string `json:"type"`
	Severity    string `json:"severity"`
	Line        int    `json:"line"`
	Description string `json:"description"`
	Suggestion  string `json:"suggestion"`
}

// Suggestion is a general improvement recommendation.
type Suggestion struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
}

// Report is the outcome of a code analysis.
type Report struct {
	Issues           []Issue      `json:"issues"`
	Suggestions      []Suggestion `json:"suggestions"`
	SecurityScore    int          `json:"security_score"`
	CodeQualityScore int          `json:"code_quality_score"`
	Summary          string       `json:"summary"`
	ModelUsed        string       `json:"ai_model_used"`
}

// chatClient is the slice of the OpenAI client the analyzer uses.
type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Analyzer runs LLM-backed code analysis with a heuristic fallback.
type Analyzer struct {
	client  chatClient
	model   string
	timeout time.Duration
}

// New constructs an Analyzer. Without an API key the analyzer runs in
// fallback-only mode.
func New(cfg config.AnalyzerConfig) *Analyzer {
	a := &Analyzer{
		model:   cfg.Model,
		timeout: cfg.Timeout,
	}
	if a.model == "" {
		a.model = openai.GPT4oMini
	}
	if a.timeout <= 0 {
		a.timeout = 60 * time.Second
	}
	if cfg.OpenAIAPIKey != "" {
		a.client = openai.NewClient(cfg.OpenAIAPIKey)
	}
	return a
}

// Analyze inspects code and returns a report. Provider failures degrade to
// the pattern-based fallback instead of surfacing an error, so an analysis
// request always produces a result.
func (a *Analyzer) Analyze(ctx context.Context, content, fileType, analysisType string) Report {
	analysisType = normalizeType(analysisType)
	if a.client == nil {
		return fallbackAnalyze(content, fileType)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	resp, errCall := a.client.CreateChatCompletion(callCtx, openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompts[analysisType]},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(content, fileType, analysisType)},
		},
	})
	if errCall != nil || len(resp.Choices) == 0 {
		log.WithError(errCall).Warn("llm analysis failed, using pattern fallback")
		return fallbackAnalyze(content, fileType)
	}

	report := parseModelResponse(resp.Choices[0].Message.Content)
	report.ModelUsed = a.model
	return report
}

// buildUserPrompt wraps the code in a fenced block with the analysis goal.
func buildUserPrompt(content, fileType, analysisType string) string {
	var b strings.Builder
	b.WriteString("Analyze this ")
	b.WriteString(fileType)
	b.WriteString(" code for ")
	b.WriteString(analysisType)
	b.WriteString(" issues:\n\n```")
	b.WriteString(fileType)
	b.WriteString("\n")
	b.WriteString(content)
	b.WriteString("\n```\n\nProvide a comprehensive analysis following the JSON format specified in the system message.")
	return b.String()
}

// parseModelResponse decodes the model's JSON report. A non-JSON reply is
// preserved as a single informational issue rather than dropped.
func parseModelResponse(raw string) Report {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var report Report
	if errDecode := json.Unmarshal([]byte(cleaned), &report); errDecode == nil {
		if report.Issues == nil {
			report.Issues = []Issue{}
		}
		if report.Suggestions == nil {
			report.Suggestions = []Suggestion{}
		}
		if report.Summary == "" {
			report.Summary = "Analysis completed"
		}
		return report
	}

	summary := raw
	if len(summary) > 200 {
		summary = summary[:200] + "..."
	}
	suggestion := raw
	if len(suggestion) > 500 {
		suggestion = suggestion[:500]
	}
	return Report{
		Issues: []Issue{{
			Type:        "analysis",
			Severity:    "info",
			Line:        0,
			Description: "AI analysis completed",
			Suggestion:  suggestion,
		}},
		Suggestions:      []Suggestion{},
		SecurityScore:    75,
		CodeQualityScore: 80,
		Summary:          summary,
	}
}
