package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jeevansetu/telehealth-platform/internal/audit"
	"github.com/jeevansetu/telehealth-platform/internal/cases"
	"github.com/jeevansetu/telehealth-platform/internal/observability/metrics"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

const analysisSystemPrompt = `You are a verified medical AI assistant within the Jeevan Setu healthcare platform.
Your role is to analyze a user's reported symptoms and provide a reasoned, dynamic differential diagnosis.
The output must be fully based on the input symptoms, with probabilities adjusted logically — no default or fixed percentages.

Instructions:
1. Carefully parse the input symptoms, noting duration, severity, pattern, and key clinical features.
2. Consider likely conditions based on Indian epidemiology.
3. Rank the top 5 possible conditions by probability. Ensure probabilities total 100% and vary per input.
4. Provide a concise reasoning for each condition.
5. Highlight if urgent medical attention is required.
6. Suggest next steps based on severity: Home care, Consult doctor, or Visit ER.
7. Format the output exactly as shown below.

Output Format:

**Likely Diagnoses**
1. [Condition Name] – [Probability %]
   Reason: [Brief reasoning]
2. [Condition Name] – [Probability %]
   Reason: [Brief reasoning]
3. [Condition Name] – [Probability %]
   Reason: [Brief reasoning]
4. [Condition Name] – [Probability %]
   Reason: [Brief reasoning]
5. [Condition Name] – [Probability %]
   Reason: [Brief reasoning]

**Urgency Level:** [Low / Moderate / High]
**Suggested Next Step:** [Home care / Consult doctor / Visit ER]

CRITICAL: Ensure probabilities are dynamic and based on the specific symptoms, not fixed percentages.`

const (
	analysisTemperature      = 0.8
	analysisReportConfidence = 0.85
)

// AnalysisResult is the structured symptom checker output.
type AnalysisResult struct {
	Analysis string `json:"analysis"`
	ReportID string `json:"reportId"`
	Message  string `json:"message"`
}

// AnalysisService produces a differential diagnosis and opens a case
// for the review workflow.
type AnalysisService struct {
	llm      Client
	cases    CaseCreator
	auditLog AuditAppender
	metrics  *metrics.AssistantMetrics
	logger   *logging.Logger
}

func NewAnalysisService(llm Client, caseCreator CaseCreator, auditLog AuditAppender, assistantMetrics *metrics.AssistantMetrics, logger *logging.Logger) *AnalysisService {
	if llm == nil {
		panic("assistant: llm client required")
	}
	if caseCreator == nil {
		panic("assistant: case creator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AnalysisService{
		llm:      llm,
		cases:    caseCreator,
		auditLog: auditLog,
		metrics:  assistantMetrics,
		logger:   logger,
	}
}

// Analyze runs the differential diagnosis and opens the pending case.
// Unlike chat, report creation failure fails the whole call: the report
// is the product here.
func (s *AnalysisService) Analyze(ctx context.Context, userID, symptoms string) (*AnalysisResult, error) {
	symptoms = strings.TrimSpace(symptoms)
	if userID == "" || symptoms == "" {
		return nil, fmt.Errorf("assistant: symptoms and user id are required")
	}

	analysis, err := s.llm.Complete(ctx, CompletionRequest{
		System:      analysisSystemPrompt,
		Messages:    []Message{{Role: RoleUser, Content: "User Symptoms: " + symptoms}},
		Temperature: analysisTemperature,
	})
	if err != nil {
		s.metrics.ObserveCompletion("symptom_analysis", completionStatus(err))
		return nil, err
	}
	s.metrics.ObserveCompletion("symptom_analysis", "ok")

	created, err := s.cases.CreateCase(ctx, &cases.NewCase{
		PatientID:       userID,
		Symptoms:        symptoms,
		AIPrediction:    analysis,
		ConfidenceScore: analysisReportConfidence,
		Status:          cases.StatusPendingIntern,
	})
	if err != nil {
		return nil, fmt.Errorf("assistant: create report: %w", err)
	}

	if s.auditLog != nil {
		details, _ := json.Marshal(map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"symptoms":  truncate(symptoms, 100),
		})
		if err := s.auditLog.Append(ctx, audit.Entry{
			CaseID:  created.ID,
			ActorID: userID,
			Action:  cases.ActionCreatedByAI,
			Details: details,
		}); err != nil {
			s.logger.Error("analysis audit failed", "case_id", created.ID, "error", err)
		}
	}

	s.logger.Info("symptom analysis report created", "case_id", created.ID, "patient_id", userID)
	return &AnalysisResult{
		Analysis: analysis,
		ReportID: created.ID,
		Message:  "Analysis complete and report created successfully",
	}, nil
}
