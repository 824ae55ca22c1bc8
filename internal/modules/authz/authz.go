package authz

import (
	"context"

	"github.com/classpod/core/internal/models"
	"gorm.io/gorm"
)

// Capability scopes checked before privileged actions.
const (
	ScopeSubmissionCreate = "submission:create"
	ScopeActivityRun      = "activity:run"
	ScopeActivityView     = "activity:view"
)

// Service evaluates capability scopes against the membership store. Every
// check re-reads the role: role assignment can change between actions, so
// results are never cached across requests.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RoleOf returns the user's role in the classroom, or "" for non-members.
func (s *Service) RoleOf(ctx context.Context, userID, classroomID string) (string, error) {
	var rows []models.MembershipModel
	err := s.db.WithContext(ctx).
		Where("classroom_id = ? AND user_id = ?", classroomID, userID).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[0].Role, nil
}

// IsInstructor reports whether the user currently holds the instructor role.
func (s *Service) IsInstructor(ctx context.Context, userID, classroomID string) (bool, error) {
	role, err := s.RoleOf(ctx, userID, classroomID)
	if err != nil {
		return false, err
	}
	return role == models.RoleInstructor, nil
}

// Allows evaluates (identity, scope, classroom) -> bool.
func (s *Service) Allows(ctx context.Context, userID, scope, classroomID string) (bool, error) {
	role, err := s.RoleOf(ctx, userID, classroomID)
	if err != nil {
		return false, err
	}

	switch role {
	case models.RoleInstructor:
		return scope == ScopeSubmissionCreate ||
			scope == ScopeActivityRun ||
			scope == ScopeActivityView, nil
	case models.RoleStudent:
		return scope == ScopeSubmissionCreate || scope == ScopeActivityView, nil
	default:
		return false, nil
	}
}
