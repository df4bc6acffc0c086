// Package audit provides security audit logging for SIEM consumption.
// It logs security-relevant events in structured JSON format for easy parsing
// and integration with security information and event management systems.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/aihub/pkg/auth"
	"github.com/ekaya-inc/aihub/pkg/models"
)

// SecurityEventType categorizes security-relevant events for filtering and alerting.
type SecurityEventType string

const (
	// EventSignInRejected is logged when an identity outside the allow-list tries to sign in.
	EventSignInRejected SecurityEventType = "sign_in_rejected"
	// EventCSRFRejected is logged when a state-changing request fails the CSRF check.
	EventCSRFRejected SecurityEventType = "csrf_rejected"
	// EventModeratorAccessDenied is logged when a non-moderator opens a moderator page.
	EventModeratorAccessDenied SecurityEventType = "moderator_access_denied"
	// EventRoleChanged is logged whenever a user's role is set by an operator.
	EventRoleChanged SecurityEventType = "role_changed"
)

// Severity levels attached to events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// SecurityEvent represents an auditable security event with all relevant context
// for SIEM ingestion and analysis.
type SecurityEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType SecurityEventType `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	ClientIP  string            `json:"client_ip,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	Severity  string            `json:"severity"`
}

// SecurityAuditor logs security events for SIEM consumption.
// A nil *SecurityAuditor is valid and discards every event.
type SecurityAuditor struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewSecurityAuditor creates a new security auditor with a dedicated logger namespace.
// Entries carry the "security_audit" logger name for filtering.
func NewSecurityAuditor(logger *zap.Logger) *SecurityAuditor {
	return &SecurityAuditor{
		logger: logger.Named("security_audit"),
		now:    time.Now,
	}
}

// LogSignInRejected records a sign-in refused by the email-domain allow-list.
// Only the domain part of the email is recorded.
func (a *SecurityAuditor) LogSignInRejected(ctx context.Context, subject, emailDomain, clientIP string) {
	a.log(ctx, SecurityEvent{
		EventType: EventSignInRejected,
		UserID:    subject,
		ClientIP:  clientIP,
		Details:   map[string]string{"email_domain": emailDomain},
		Severity:  SeverityWarning,
	}, "Sign-in rejected by domain policy")
}

// LogCSRFRejected records a request that failed CSRF validation.
func (a *SecurityAuditor) LogCSRFRejected(ctx context.Context, method, path, reason, clientIP string) {
	a.log(ctx, SecurityEvent{
		EventType: EventCSRFRejected,
		ClientIP:  clientIP,
		Details: map[string]string{
			"method": method,
			"path":   path,
			"reason": reason,
		},
		Severity: SeverityWarning,
	}, "CSRF validation failed")
}

// LogModeratorAccessDenied records a signed-in user without the moderator
// role reaching a moderator-only surface.
func (a *SecurityAuditor) LogModeratorAccessDenied(ctx context.Context, path, clientIP string) {
	a.log(ctx, SecurityEvent{
		EventType: EventModeratorAccessDenied,
		ClientIP:  clientIP,
		Details:   map[string]string{"path": path},
		Severity:  SeverityInfo,
	}, "Moderator access denied")
}

// LogRoleChanged records an operator changing a user's role.
// Moderator grants are logged as critical.
func (a *SecurityAuditor) LogRoleChanged(ctx context.Context, userID, role string) {
	severity := SeverityInfo
	if role == models.RoleModerator {
		severity = SeverityCritical
	}
	a.log(ctx, SecurityEvent{
		EventType: EventRoleChanged,
		UserID:    userID,
		Details:   map[string]string{"role": role},
		Severity:  severity,
	}, "User role changed")
}

func (a *SecurityAuditor) log(ctx context.Context, event SecurityEvent, msg string) {
	if a == nil {
		return
	}
	event.Timestamp = a.now().UTC()
	if event.UserID == "" {
		if user, ok := auth.GetUser(ctx); ok {
			event.UserID = user.ID.String()
		}
	}

	// Marshaling a struct of strings cannot fail.
	eventJSON, _ := json.Marshal(event)

	fields := []zap.Field{
		zap.String("event_json", string(eventJSON)),
		zap.String("event_type", string(event.EventType)),
		zap.String("user_id", event.UserID),
		zap.String("client_ip", event.ClientIP),
		zap.String("severity", event.Severity),
	}
	switch event.Severity {
	case SeverityCritical:
		a.logger.Error(msg, fields...)
	case SeverityWarning:
		a.logger.Warn(msg, fields...)
	default:
		a.logger.Info(msg, fields...)
	}
}
