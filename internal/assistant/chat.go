package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jeevansetu/telehealth-platform/internal/audit"
	"github.com/jeevansetu/telehealth-platform/internal/cases"
	"github.com/jeevansetu/telehealth-platform/internal/observability/metrics"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

const chatSystemPrompt = `Act as the Jeevan Setu AI Health Assistant. Your function is strictly limited to providing compassionate, actionable triage guidance, NOT diagnosis or prescription. Your response must be extremely concise, professional, and limited to a MAXIMUM of 5 sentences total. You must structure your entire output into THREE distinct, labeled sections: *Urgency:* (identify red flags requiring immediate attention), *Immediate Home Care:* (practical steps they can take now), and *Next Action:* (recommend using Jeevan Setu Symptom Checker and booking consultation if needed). Do not include excessive bullet points, bolding, or generic medical information. Focus on the user's specific input. Always start with "Thank you for reaching out. Please remember I cannot provide a diagnosis, only guidance." End with "We hope you feel better soon."`

const predictionSystemPrompt = `Based on the patient symptoms, provide a brief medical assessment in 2-3 sentences. Include potential conditions to investigate and urgency level. Be professional and cautious.`

// Messages mentioning any of these trigger triage report creation.
var medicalKeywords = regexp.MustCompile(`(?i)(pain|fever|symptom|sick|hurt|ache|dizzy|nausea|vomit|cough|cancer|tumor|lump|bleeding|swelling)`)

const chatReportConfidence = 0.75

// History is the conversational context store used by the chat service.
type History interface {
	Append(ctx context.Context, userID string, msg Message) error
	Recent(ctx context.Context, userID string) ([]Message, error)
}

// CaseCreator opens a diagnostic case from triage output.
type CaseCreator interface {
	CreateCase(ctx context.Context, in *cases.NewCase) (*cases.Case, error)
}

// AuditAppender records case creation in the audit trail.
type AuditAppender interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// ChatReply is the assistant's answer to one chat turn. ReportID is set
// when the message looked medical and a case was opened.
type ChatReply struct {
	Message    string  `json:"message"`
	ReportID   string  `json:"reportId,omitempty"`
	Prediction string  `json:"prediction,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// ChatService runs the triage chat loop.
type ChatService struct {
	llm      Client
	history  History
	cases    CaseCreator
	auditLog AuditAppender
	metrics  *metrics.AssistantMetrics
	logger   *logging.Logger
}

// NewChatService wires the chat loop. history, cases, auditLog and
// assistantMetrics may be nil; features degrade accordingly.
func NewChatService(llm Client, history History, caseCreator CaseCreator, auditLog AuditAppender, assistantMetrics *metrics.AssistantMetrics, logger *logging.Logger) *ChatService {
	if llm == nil {
		panic("assistant: llm client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ChatService{
		llm:      llm,
		history:  history,
		cases:    caseCreator,
		auditLog: auditLog,
		metrics:  assistantMetrics,
		logger:   logger,
	}
}

// Chat answers one user message with full conversational context.
func (s *ChatService) Chat(ctx context.Context, userID, message string) (*ChatReply, error) {
	message = strings.TrimSpace(message)
	if userID == "" || message == "" {
		return nil, fmt.Errorf("assistant: message and user id are required")
	}

	var turns []Message
	if s.history != nil {
		recent, err := s.history.Recent(ctx, userID)
		if err != nil {
			// Degrade to a contextless reply rather than failing the chat.
			s.logger.Warn("chat history unavailable", "user_id", userID, "error", err)
		} else {
			turns = recent
		}
	}

	messages := append(turns, Message{Role: RoleUser, Content: message})
	reply, err := s.llm.Complete(ctx, CompletionRequest{
		System:   chatSystemPrompt,
		Messages: messages,
	})
	if err != nil {
		s.metrics.ObserveCompletion("chat", completionStatus(err))
		return nil, err
	}
	s.metrics.ObserveCompletion("chat", "ok")

	if s.history != nil {
		if err := s.history.Append(ctx, userID, Message{Role: RoleUser, Content: message}); err != nil {
			s.logger.Warn("chat history append failed", "user_id", userID, "error", err)
		}
		if err := s.history.Append(ctx, userID, Message{Role: RoleAssistant, Content: reply}); err != nil {
			s.logger.Warn("chat history append failed", "user_id", userID, "error", err)
		}
	}

	out := &ChatReply{Message: reply}
	if s.cases != nil && medicalKeywords.MatchString(message) {
		s.openCaseFromChat(ctx, userID, message, out)
	}
	return out, nil
}

// openCaseFromChat asks the model for a short assessment and opens a
// pending case. Failures here never fail the chat reply.
func (s *ChatService) openCaseFromChat(ctx context.Context, userID, message string, out *ChatReply) {
	prediction, err := s.llm.Complete(ctx, CompletionRequest{
		System:   predictionSystemPrompt,
		Messages: []Message{{Role: RoleUser, Content: "Patient reported: " + message}},
	})
	if err != nil {
		s.logger.Warn("triage prediction failed", "user_id", userID, "error", err)
		return
	}

	created, err := s.cases.CreateCase(ctx, &cases.NewCase{
		PatientID:       userID,
		Symptoms:        message,
		AIPrediction:    prediction,
		ConfidenceScore: chatReportConfidence,
		Status:          cases.StatusPendingIntern,
	})
	if err != nil {
		s.logger.Error("triage case creation failed", "user_id", userID, "error", err)
		return
	}

	s.appendCreationAudit(ctx, created.ID, userID, message)
	s.logger.Info("triage case opened from chat", "case_id", created.ID, "patient_id", userID)

	out.ReportID = created.ID
	out.Prediction = prediction
	out.Confidence = chatReportConfidence
}

func (s *ChatService) appendCreationAudit(ctx context.Context, caseID, userID, symptoms string) {
	if s.auditLog == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"symptoms":  truncate(symptoms, 100),
	})
	if err := s.auditLog.Append(ctx, audit.Entry{
		CaseID:  caseID,
		ActorID: userID,
		Action:  cases.ActionCreatedByAI,
		Details: details,
	}); err != nil {
		s.logger.Error("case creation audit failed", "case_id", caseID, "error", err)
	}
}

func completionStatus(err error) string {
	switch {
	case err == nil:
		return "ok"
	case isRateLimited(err):
		return "rate_limited"
	case isQuotaExceeded(err):
		return "quota_exceeded"
	default:
		return "error"
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
