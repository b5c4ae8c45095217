package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/codebugsleuth/bughunter/internal/analyzer"
	"github.com/codebugsleuth/bughunter/internal/models"
	"github.com/codebugsleuth/bughunter/internal/store"
	"github.com/codebugsleuth/bughunter/internal/subscription"
)

// maxUploadBytes bounds uploaded source file size.
const maxUploadBytes = 1 << 20

// AnalyzeHandler serves code analysis requests.
type AnalyzeHandler struct {
	engine   *analyzer.Analyzer
	analyses *store.AnalysisStore
	subs     *subscription.Service
}

// NewAnalyzeHandler constructs an analysis handler.
func NewAnalyzeHandler(engine *analyzer.Analyzer, analyses *store.AnalysisStore, subs *subscription.Service) *AnalyzeHandler {
	return &AnalyzeHandler{engine: engine, analyses: analyses, subs: subs}
}

// analyzeTextRequest captures the text analysis payload.
type analyzeTextRequest struct {
	FileContent  string `json:"file_content"`
	FileType     string `json:"file_type"`
	AnalysisType string `json:"analysis_type"`
}

// analysisResponse is the caller-facing analysis result.
type analysisResponse struct {
	ID               string          `json:"id"`
	FileName         string          `json:"file_name"`
	FileType         string          `json:"file_type"`
	AnalysisType     string          `json:"analysis_type"`
	Issues           json.RawMessage `json:"issues"`
	Suggestions      json.RawMessage `json:"suggestions"`
	SecurityScore    int             `json:"security_score"`
	CodeQualityScore int             `json:"code_quality_score"`
	Summary          string          `json:"summary"`
	AIModelUsed      string          `json:"ai_model_used"`
	Timestamp        time.Time       `json:"timestamp"`
}

func toAnalysisResponse(result *models.AnalysisResult) analysisResponse {
	return analysisResponse{
		ID:               result.ID,
		FileName:         result.FileName,
		FileType:         result.FileType,
		AnalysisType:     result.AnalysisType,
		Issues:           json.RawMessage(result.Issues),
		Suggestions:      json.RawMessage(result.Suggestions),
		SecurityScore:    result.SecurityScore,
		CodeQualityScore: result.CodeQualityScore,
		Summary:          result.Summary,
		AIModelUsed:      result.ModelUsed,
		Timestamp:        result.CreatedAt,
	}
}

// AnalyzeText analyzes code submitted as JSON text.
func (h *AnalyzeHandler) AnalyzeText(c *gin.Context) {
	var body analyzeTextRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.FileContent == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_content is required"})
		return
	}
	if body.FileType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_type is required"})
		return
	}

	h.runAnalysis(c, "text_input", body.FileType, body.AnalysisType, body.FileContent)
}

// AnalyzeUpload analyzes an uploaded source file.
func (h *AnalyzeHandler) AnalyzeUpload(c *gin.Context) {
	fileHeader, errFile := c.FormFile("file")
	if errFile != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file too large"})
		return
	}

	fileType, supported := analyzer.LanguageTypeForFile(fileHeader.Filename)
	if !supported {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported file type"})
		return
	}

	file, errOpen := fileHeader.Open()
	if errOpen != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer func() { _ = file.Close() }()

	content, errRead := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}

	analysisType := c.PostForm("analysis_type")
	h.runAnalysis(c, fileHeader.Filename, fileType, analysisType, string(content))
}

// runAnalysis gates on quota, runs the analysis, persists the result, and
// records usage. Quota is only consumed once the analysis has succeeded.
func (h *AnalyzeHandler) runAnalysis(c *gin.Context, fileName, fileType, analysisType, content string) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	decision, errEvaluate := h.subs.Evaluate(c.Request.Context(), user)
	if errEvaluate != nil {
		log.WithError(errEvaluate).Error("quota evaluation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}
	if !decision.Allowed {
		c.JSON(http.StatusPaymentRequired, gin.H{
			"error":     "monthly analysis limit reached",
			"limit":     decision.Limit,
			"remaining": 0,
			"tier":      decision.Tier,
		})
		return
	}

	started := time.Now()
	report := h.engine.Analyze(c.Request.Context(), content, fileType, analysisType)
	elapsed := time.Since(started)

	issues, errIssues := json.Marshal(report.Issues)
	if errIssues != nil {
		log.WithError(errIssues).Error("marshal issues failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}
	suggestions, errSuggestions := json.Marshal(report.Suggestions)
	if errSuggestions != nil {
		log.WithError(errSuggestions).Error("marshal suggestions failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	result := &models.AnalysisResult{
		UserID:           user.ID,
		FileName:         fileName,
		FileType:         fileType,
		AnalysisType:     analysisType,
		Issues:           datatypes.JSON(issues),
		Suggestions:      datatypes.JSON(suggestions),
		SecurityScore:    report.SecurityScore,
		CodeQualityScore: report.CodeQualityScore,
		Summary:          report.Summary,
		ModelUsed:        report.ModelUsed,
		ProcessingTimeMS: float64(elapsed.Milliseconds()),
	}
	if errSave := h.analyses.SaveResult(c.Request.Context(), result); errSave != nil {
		log.WithError(errSave).Error("persist analysis failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	// The analysis succeeded, now charge the quota unit.
	if _, errRecord := h.subs.Record(c.Request.Context(), user, "analysis", map[string]any{
		"file_name":     fileName,
		"file_type":     fileType,
		"analysis_type": analysisType,
	}); errRecord != nil {
		if quotaErr, denied := subscription.IsQuotaExceeded(errRecord); denied {
			c.JSON(http.StatusPaymentRequired, gin.H{
				"error":     "monthly analysis limit reached",
				"limit":     quotaErr.Limit,
				"remaining": 0,
				"tier":      quotaErr.Tier,
			})
			return
		}
		log.WithError(errRecord).Error("record usage failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "analysis failed"})
		return
	}

	c.JSON(http.StatusOK, toAnalysisResponse(result))
}

// historyEntry is one row of the analysis history listing.
type historyEntry struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	AnalysisType string    `json:"analysis_type"`
	ResultID     string    `json:"result_id"`
	Status       string    `json:"status"`
	Timestamp    time.Time `json:"timestamp"`
}

// History lists the caller's analysis history, newest first.
func (h *AnalyzeHandler) History(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	entries, errList := h.analyses.HistoryByUser(c.Request.Context(), user.ID, 100)
	if errList != nil {
		log.WithError(errList).Error("list history failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve history"})
		return
	}

	out := make([]historyEntry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, historyEntry{
			ID:           entry.ID,
			FileName:     entry.FileName,
			FileType:     entry.FileType,
			AnalysisType: entry.AnalysisType,
			ResultID:     entry.ResultID,
			Status:       entry.Status,
			Timestamp:    entry.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

// Result fetches one analysis result owned by the caller.
func (h *AnalyzeHandler) Result(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	result, errFind := h.analyses.ResultByID(c.Request.Context(), user.ID, c.Param("id"))
	if errFind != nil {
		if errors.Is(errFind, store.ErrAnalysisNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "analysis result not found"})
			return
		}
		log.WithError(errFind).Error("fetch result failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to retrieve result"})
		return
	}
	c.JSON(http.StatusOK, toAnalysisResponse(result))
}

// SupportedLanguages lists the language catalog.
func (h *AnalyzeHandler) SupportedLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"languages": analyzer.Languages()})
}

// AnalysisTypes lists the available analysis modes.
func (h *AnalyzeHandler) AnalysisTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"analysis_types": analyzer.AnalysisTypes()})
}
