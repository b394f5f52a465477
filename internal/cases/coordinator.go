package cases

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jeevansetu/telehealth-platform/internal/audit"
	"github.com/jeevansetu/telehealth-platform/internal/identity"
	"github.com/jeevansetu/telehealth-platform/internal/observability/metrics"
	"github.com/jeevansetu/telehealth-platform/pkg/logging"
)

// AuditAppender records standalone audit entries for actions that are
// not already audited inside a store transaction.
type AuditAppender interface {
	Append(ctx context.Context, entry audit.Entry) error
}

// Coordinator arbitrates exclusive case claims. It validates the
// caller's role against their stored profile, delegates the atomic
// claim to the store and translates a lost race into a structured
// conflict response with the current owner.
type Coordinator struct {
	store    Store
	roles    RoleChecker
	notifier Notifier
	auditLog AuditAppender
	metrics  *metrics.CaseMetrics
	logger   *logging.Logger
	claimTTL time.Duration
	now      func() time.Time
}

// NewCoordinator wires the claim path. Pass a zero claimTTL to use
// DefaultClaimTTL. notifier, auditLog and caseMetrics may be nil.
func NewCoordinator(store Store, roles RoleChecker, notifier Notifier, auditLog AuditAppender, caseMetrics *metrics.CaseMetrics, logger *logging.Logger, claimTTL time.Duration) *Coordinator {
	if store == nil {
		panic("cases: store is required")
	}
	if roles == nil {
		panic("cases: role checker is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if claimTTL <= 0 {
		claimTTL = DefaultClaimTTL
	}
	return &Coordinator{
		store:    store,
		roles:    roles,
		notifier: notifier,
		auditLog: auditLog,
		metrics:  caseMetrics,
		logger:   logger,
		claimTTL: claimTTL,
		now:      time.Now,
	}
}

// Claim attempts to take the exclusive claim for caseID on behalf of
// reviewerID acting as role. The role on the token is advisory; the
// profile row is the authority.
func (c *Coordinator) Claim(ctx context.Context, caseID, reviewerID string, role identity.Role) (*ClaimResult, error) {
	if caseID == "" || reviewerID == "" {
		return nil, fmt.Errorf("claim: %w", ErrValidation)
	}
	if role != identity.RoleIntern && role != identity.RoleDoctor {
		return nil, fmt.Errorf("claim: role %q: %w", role, ErrRoleMismatch)
	}

	actual, err := c.roles.GetRole(ctx, reviewerID)
	if err != nil {
		return nil, fmt.Errorf("claim: resolve role for %s: %w", reviewerID, err)
	}
	if actual != role {
		c.logger.Warn("claim role mismatch",
			"case_id", caseID,
			"reviewer_id", reviewerID,
			"requested_role", string(role),
			"profile_role", string(actual))
		return nil, fmt.Errorf("claim: requested %q but profile is %q: %w", role, actual, ErrRoleMismatch)
	}

	claimedAt := c.now().UTC()
	expiresAt := claimedAt.Add(c.claimTTL)

	var won bool
	if role == identity.RoleIntern {
		won, err = c.store.ClaimIntern(ctx, caseID, reviewerID, claimedAt, expiresAt)
	} else {
		won, err = c.store.ClaimDoctor(ctx, caseID, reviewerID, claimedAt, expiresAt)
	}
	if err != nil {
		return nil, fmt.Errorf("claim: %w", err)
	}

	if won {
		status := StatusAssignedIntern
		action := ActionInternClaimed
		if role == identity.RoleDoctor {
			status = StatusAssignedDoctor
			action = ActionDoctorClaimed
		}
		c.metrics.ObserveClaim(string(role), "won")
		c.logger.Info("case claimed",
			"case_id", caseID,
			"reviewer_id", reviewerID,
			"role", string(role),
			"expires_at", expiresAt)
		c.notify(ChangeEvent{
			CaseID:  caseID,
			Status:  status,
			ActorID: reviewerID,
			Action:  action,
			At:      claimedAt,
		})
		c.appendAudit(ctx, caseID, reviewerID, action, expiresAt)
		return &ClaimResult{
			Success: true,
			Status:  status,
			Message: "case assigned",
		}, nil
	}

	c.metrics.ObserveClaim(string(role), "conflict")
	return c.conflictResult(ctx, caseID, role)
}

// conflictResult explains a lost claim: the case may not exist, may be
// past the caller's stage, or may be held by another reviewer.
func (c *Coordinator) conflictResult(ctx context.Context, caseID string, role identity.Role) (*ClaimResult, error) {
	cs, err := c.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, fmt.Errorf("claim conflict lookup: %w", err)
	}

	heldStatus := StatusAssignedIntern
	if role == identity.RoleDoctor {
		heldStatus = StatusAssignedDoctor
	}
	if cs.Status != heldStatus {
		return &ClaimResult{
			Success: false,
			Status:  cs.Status,
			Error:   ClaimErrNotClaimable,
			Message: fmt.Sprintf("case is %s and cannot be claimed as %s", cs.Status, role),
		}, nil
	}

	var owner *Owner
	if role == identity.RoleIntern {
		owner, err = c.store.InternOwner(ctx, caseID)
	} else {
		owner, err = c.store.DoctorOwner(ctx, caseID)
	}
	if err != nil {
		return nil, fmt.Errorf("claim conflict owner lookup: %w", err)
	}

	return &ClaimResult{
		Success:      false,
		Status:       cs.Status,
		Error:        ClaimErrAlreadyClaimed,
		Message:      "another reviewer holds this case",
		CurrentOwner: owner,
	}, nil
}

// appendAudit records the claim in the audit trail. Audit failure does
// not fail the claim; the claim has already committed.
func (c *Coordinator) appendAudit(ctx context.Context, caseID, reviewerID, action string, expiresAt time.Time) {
	if c.auditLog == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{"claim_expires_at": expiresAt.Format(time.RFC3339)})
	if err := c.auditLog.Append(ctx, audit.Entry{
		CaseID:  caseID,
		ActorID: reviewerID,
		Action:  action,
		Details: details,
	}); err != nil {
		c.logger.Error("claim audit append failed", "case_id", caseID, "error", err)
	}
}

func (c *Coordinator) notify(evt ChangeEvent) {
	if c.notifier == nil {
		return
	}
	c.notifier.NotifyCaseChanged(evt)
}
