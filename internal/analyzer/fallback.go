package analyzer

import (
	"fmt"
	"strings"
)

// heuristicPattern flags a known-dangerous construct by substring match.
type heuristicPattern struct {
	needle      string
	issueType   string
	severity    string
	description string
	suggestion  string
	languages   []string // empty means any language
}

var heuristicPatterns = []heuristicPattern{
	{
		needle:      "eval(",
		issueType:   "security",
		severity:    "critical",
		description: "Use of eval() executes arbitrary code and is a common injection vector",
		suggestion:  "Replace eval() with explicit parsing or a safe dispatch table",
	},
	{
		needle:      "exec(",
		issueType:   "security",
		severity:    "high",
		description: "Dynamic code execution via exec() can run attacker-controlled input",
		suggestion:  "Avoid exec(); restructure so the required behavior is expressed in code",
		languages:   []string{"python"},
	},
	{
		needle:      "SELECT * FROM",
		issueType:   "performance",
		severity:    "medium",
		description: "SELECT * fetches every column and breaks when the schema changes",
		suggestion:  "Select only the columns the caller needs",
	},
	{
		needle:      "while True:",
		issueType:   "bug",
		severity:    "medium",
		description: "Unbounded loop with no visible exit condition",
		suggestion:  "Add an explicit termination condition or timeout",
		languages:   []string{"python"},
	},
	{
		needle:      "innerHTML",
		issueType:   "security",
		severity:    "high",
		description: "Assigning to innerHTML with untrusted data allows XSS",
		suggestion:  "Use textContent or sanitize the markup before insertion",
		languages:   []string{"javascript", "typescript", "html"},
	},
	{
		needle:      "password",
		issueType:   "security",
		severity:    "low",
		description: "Possible hardcoded or logged credential",
		suggestion:  "Confirm no secret is embedded in source or written to logs",
	},
}

// matchesLanguage reports whether the pattern applies to the language type.
func (p heuristicPattern) matchesLanguage(fileType string) bool {
	if len(p.languages) == 0 {
		return true
	}
	for _, lang := range p.languages {
		if lang == fileType {
			return true
		}
	}
	return false
}

// fallbackAnalyze scans code with substring heuristics. It covers the case
// where no LLM is configured or the provider call failed.
func fallbackAnalyze(content, fileType string) Report {
	var issues []Issue
	lines := strings.Split(content, "\n")
	for lineNo, line := range lines {
		for _, pattern := range heuristicPatterns {
			if !pattern.matchesLanguage(fileType) {
				continue
			}
			if strings.Contains(strings.ToLower(line), strings.ToLower(pattern.needle)) {
				issues = append(issues, Issue{
					Type:        pattern.issueType,
					Severity:    pattern.severity,
					Line:        lineNo + 1,
					Description: pattern.description,
					Suggestion:  pattern.suggestion,
				})
			}
		}
	}

	securityScore := 100
	qualityScore := 90
	for _, issue := range issues {
		switch issue.Severity {
		case "critical":
			securityScore -= 30
		case "high":
			securityScore -= 15
		case "medium":
			qualityScore -= 10
		case "low":
			qualityScore -= 5
		}
	}
	if securityScore < 0 {
		securityScore = 0
	}
	if qualityScore < 0 {
		qualityScore = 0
	}

	summary := "Pattern-based scan found no known issue signatures"
	if len(issues) > 0 {
		summary = fmt.Sprintf("Pattern-based scan flagged %d potential issue(s)", len(issues))
	}
	if issues == nil {
		issues = []Issue{}
	}
	return Report{
		Issues:           issues,
		Suggestions:      []Suggestion{},
		SecurityScore:    securityScore,
		CodeQualityScore: qualityScore,
		Summary:          summary,
		ModelUsed:        "pattern-matcher",
	}
}
