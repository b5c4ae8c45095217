package analyzer

// Analysis type names accepted by the analyzer.
const (
	TypeComprehensive = "comprehensive"
	TypeSecurity      = "security"
	TypeBugs          = "bugs"
	TypePerformance   = "performance"
	TypeStyle         = "style"
)

// AnalysisType describes an available analysis mode.
type AnalysisType struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// AnalysisTypes returns the available analysis modes in display order.
func AnalysisTypes() []AnalysisType {
	return []AnalysisType{
		{ID: TypeComprehensive, Name: "Comprehensive", Description: "Full analysis covering bugs, security, performance, and style"},
		{ID: TypeSecurity, Name: "Security", Description: "Security vulnerabilities with OWASP Top 10 focus"},
		{ID: TypeBugs, Name: "Bug Hunt", Description: "Logic errors, edge cases, and error handling gaps"},
		{ID: TypePerformance, Name: "Performance", Description: "Algorithmic complexity and resource usage"},
		{ID: TypeStyle, Name: "Style", Description: "Coding standards and maintainability"},
	}
}

// normalizeType maps unknown analysis types to the comprehensive default.
func normalizeType(analysisType string) string {
	switch analysisType {
	case TypeSecurity, TypeBugs, TypePerformance, TypeStyle:
		return analysisType
	default:
		return TypeComprehensive
	}
}

const responseFormat = `Format your response as JSON with the following structure:
{
  "issues": [{"type": "bug|security|performance|style", "severity": "critical|high|medium|low", "line": number, "description": "...", "suggestion": "..."}],
  "suggestions": [{"category": "...", "description": "...", "impact": "..."}],
  "security_score": number,
  "code_quality_score": number,
  "summary": "..."
}`

// systemPrompts holds the per-type system messages sent to the model.
var systemPrompts = map[string]string{
	TypeComprehensive: `You are an expert code analyzer and bug hunter. Analyze the provided code and report:

1. Critical issues: security vulnerabilities, potential crashes, memory leaks
2. Bugs: logic errors, edge cases, type mismatches
3. Performance issues: inefficient algorithms, resource usage problems
4. Code quality: style issues, readability, maintainability
5. Best practices: suggestions for improvement

For each issue provide severity (critical, high, medium, low), line number where applicable, a description, and a suggested fix. Also provide an overall security score (0-100), an overall code quality score (0-100), and a summary of key findings.

` + responseFormat,

	TypeSecurity: `You are a cybersecurity expert specializing in code analysis. Focus specifically on security vulnerabilities:

1. Injection attacks: SQL injection, XSS, command injection
2. Authentication issues: weak auth, session management problems
3. Data exposure: sensitive data leaks, improper encryption
4. Input validation: missing or weak validation
5. Access control: authorization bypasses, privilege escalation

Provide a detailed security assessment with OWASP Top 10 mappings where applicable.

` + responseFormat,

	TypeBugs: `You are a debugging expert. Focus on finding functional bugs:

1. Logic errors: incorrect algorithms, wrong conditions
2. Type issues: type mismatches, casting problems
3. Edge cases: null dereferences, boundary conditions
4. Concurrency issues: race conditions, deadlocks
5. Error handling: swallowed errors, improper propagation

` + responseFormat,

	TypePerformance: `You are a performance optimization expert. Focus on performance issues:

1. Algorithmic complexity: quadratic work where linear is possible
2. Memory usage: leaks, unnecessary allocations
3. I/O operations: inefficient database queries, file operations
4. Caching: missing caching opportunities
5. Resource management: connection pooling, cleanup issues

` + responseFormat,

	TypeStyle: `You are a code style and maintainability expert. Focus on:

1. Coding standards: naming conventions, formatting
2. Code structure: organization, modularity
3. Documentation: missing comments, unclear names
4. Design patterns: appropriate pattern usage
5. Maintainability: duplication, long functions

` + responseFormat,
}
