package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codebugsleuth/bughunter/internal/config"
)

type stubChatClient struct {
	response string
	err      error
}

func (s *stubChatClient) CreateChatCompletion(_ context.Context, _ openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.response}},
		},
	}, nil
}

func TestAnalyze_ParsesModelJSON(t *testing.T) {
	a := &Analyzer{
		client: &stubChatClient{response: `{
			"issues": [{"type": "security", "severity": "high", "line": 3, "description": "SQL injection", "suggestion": "Use parameters"}],
			"suggestions": [{"category": "testing", "description": "Add tests", "impact": "high"}],
			"security_score": 42,
			"code_quality_score": 70,
			"summary": "One high severity issue"
		}`},
		model:   "gpt-4o-mini",
		timeout: time.Second,
	}

	report := a.Analyze(context.Background(), "code", "python", TypeSecurity)
	if len(report.Issues) != 1 || report.Issues[0].Severity != "high" {
		t.Fatalf("issues = %+v", report.Issues)
	}
	if report.SecurityScore != 42 || report.CodeQualityScore != 70 {
		t.Fatalf("scores = %d/%d", report.SecurityScore, report.CodeQualityScore)
	}
	if report.ModelUsed != "gpt-4o-mini" {
		t.Fatalf("model = %q", report.ModelUsed)
	}
}

func TestAnalyze_StripsCodeFence(t *testing.T) {
	a := &Analyzer{
		client:  &stubChatClient{response: "```json\n{\"issues\": [], \"suggestions\": [], \"security_score\": 90, \"code_quality_score\": 95, \"summary\": \"clean\"}\n```"},
		model:   "gpt-4o-mini",
		timeout: time.Second,
	}

	report := a.Analyze(context.Background(), "code", "go", TypeComprehensive)
	if report.SecurityScore != 90 || report.Summary != "clean" {
		t.Fatalf("report = %+v, want fenced JSON decoded", report)
	}
}

func TestAnalyze_NonJSONResponsePreserved(t *testing.T) {
	a := &Analyzer{
		client:  &stubChatClient{response: "The code looks mostly fine but lacks tests."},
		model:   "gpt-4o-mini",
		timeout: time.Second,
	}

	report := a.Analyze(context.Background(), "code", "go", TypeComprehensive)
	if len(report.Issues) != 1 || report.Issues[0].Severity != "info" {
		t.Fatalf("issues = %+v, want single info issue wrapping raw text", report.Issues)
	}
	if report.Summary == "" {
		t.Fatal("summary empty for non-JSON response")
	}
}

func TestAnalyze_ProviderErrorFallsBack(t *testing.T) {
	a := &Analyzer{
		client:  &stubChatClient{err: errors.New("rate limited")},
		model:   "gpt-4o-mini",
		timeout: time.Second,
	}

	report := a.Analyze(context.Background(), "result = eval(user_input)\n", "python", TypeSecurity)
	if report.ModelUsed != "pattern-matcher" {
		t.Fatalf("model = %q, want pattern-matcher fallback", report.ModelUsed)
	}
	if len(report.Issues) == 0 {
		t.Fatal("fallback missed eval() in input")
	}
}

func TestAnalyze_NoClientUsesFallback(t *testing.T) {
	a := New(config.AnalyzerConfig{})

	report := a.Analyze(context.Background(), "x = 1\n", "python", TypeBugs)
	if report.ModelUsed != "pattern-matcher" {
		t.Fatalf("model = %q, want pattern-matcher when unconfigured", report.ModelUsed)
	}
}

func TestFallbackAnalyze_FlagsKnownPatterns(t *testing.T) {
	code := "query = \"SELECT * FROM users\"\nwhile True:\n    result = eval(data)\n"
	report := fallbackAnalyze(code, "python")

	bySeverity := map[string]int{}
	for _, issue := range report.Issues {
		bySeverity[issue.Severity]++
	}
	if bySeverity["critical"] != 1 {
		t.Fatalf("critical findings = %d, want 1 for eval()", bySeverity["critical"])
	}
	if bySeverity["medium"] != 2 {
		t.Fatalf("medium findings = %d, want SELECT * and while True flagged", bySeverity["medium"])
	}
	if report.SecurityScore >= 100 {
		t.Fatalf("security score = %d, want penalty applied", report.SecurityScore)
	}
}

func TestFallbackAnalyze_LanguageScoped(t *testing.T) {
	report := fallbackAnalyze("while True:\n", "go")
	for _, issue := range report.Issues {
		if issue.Description == "Unbounded loop with no visible exit condition" {
			t.Fatal("python-only pattern applied to go source")
		}
	}
}

func TestLanguageTypeForFile(t *testing.T) {
	cases := map[string]string{
		"main.py":       "python",
		"app.JSX":       "javascript",
		"component.tsx": "typescript",
		"config.yml":    "yaml",
	}
	for name, want := range cases {
		got, ok := LanguageTypeForFile(name)
		if !ok || got != want {
			t.Fatalf("LanguageTypeForFile(%q) = %q/%v, want %q", name, got, ok, want)
		}
	}
	if _, ok := LanguageTypeForFile("binary.exe"); ok {
		t.Fatal("unsupported extension accepted")
	}
}

func TestNormalizeType(t *testing.T) {
	if got := normalizeType("security"); got != TypeSecurity {
		t.Fatalf("normalizeType(security) = %q", got)
	}
	if got := normalizeType("made-up"); got != TypeComprehensive {
		t.Fatalf("normalizeType(made-up) = %q, want comprehensive default", got)
	}
}
