package analyzer

import (
	"path/filepath"
	"strings"
)

// Language describes a supported source language.
type Language struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	Type      string `json:"type"`
}

// supportedLanguages is the fixed catalog, in display order.
var supportedLanguages = []Language{
	{Name: "Python", Extension: ".py", Type: "python"},
	{Name: "JavaScript", Extension: ".js", Type: "javascript"},
	{Name: "TypeScript", Extension: ".ts", Type: "typescript"},
	{Name: "Java", Extension: ".java", Type: "java"},
	{Name: "C++", Extension: ".cpp", Type: "cpp"},
	{Name: "C", Extension: ".c", Type: "c"},
	{Name: "C#", Extension: ".cs", Type: "csharp"},
	{Name: "PHP", Extension: ".php", Type: "php"},
	{Name: "Ruby", Extension: ".rb", Type: "ruby"},
	{Name: "Go", Extension: ".go", Type: "go"},
	{Name: "Rust", Extension: ".rs", Type: "rust"},
	{Name: "Kotlin", Extension: ".kt", Type: "kotlin"},
	{Name: "Swift", Extension: ".swift", Type: "swift"},
	{Name: "HTML", Extension: ".html", Type: "html"},
	{Name: "CSS", Extension: ".css", Type: "css"},
	{Name: "SQL", Extension: ".sql", Type: "sql"},
	{Name: "JSON", Extension: ".json", Type: "json"},
	{Name: "YAML", Extension: ".yaml", Type: "yaml"},
}

// extensionTypes maps file extensions to language types, including variant
// extensions that share a type.
var extensionTypes = map[string]string{
	".py":    "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".cpp":   "cpp",
	".c":     "c",
	".cs":    "csharp",
	".php":   "php",
	".rb":    "ruby",
	".go":    "go",
	".rs":    "rust",
	".kt":    "kotlin",
	".swift": "swift",
	".html":  "html",
	".css":   "css",
	".sql":   "sql",
	".json":  "json",
	".yaml":  "yaml",
	".yml":   "yaml",
}

// Languages returns the supported language catalog.
func Languages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// LanguageTypeForFile resolves a filename to its language type.
func LanguageTypeForFile(name string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	langType, ok := extensionTypes[ext]
	return langType, ok
}
