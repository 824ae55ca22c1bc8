package submissions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/classpod/core/internal/models"
	"github.com/classpod/core/internal/modules/authz"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Cooldown is the minimum interval between accepted submissions by the
// same user for the same activity.
const Cooldown = 10 * time.Second

// ScopeChecker evaluates capability scopes; satisfied by authz.Service.
type ScopeChecker interface {
	Allows(ctx context.Context, userID, scope, classroomID string) (bool, error)
	IsInstructor(ctx context.Context, userID, classroomID string) (bool, error)
}

// ActivityState reports the live activity of a classroom, if any;
// satisfied by rooms.Manager.
type ActivityState interface {
	LiveActivity(classroomID string) (string, bool)
}

// Service validates and persists versioned student submissions.
type Service struct {
	db     *gorm.DB
	scopes ScopeChecker
	state  ActivityState
	logger *zap.Logger

	now func() time.Time
}

func NewService(db *gorm.DB, scopes ScopeChecker, state ActivityState, logger *zap.Logger) *Service {
	return &Service{
		db:     db,
		scopes: scopes,
		state:  state,
		logger: logger,
		now:    time.Now,
	}
}

// Submit runs the intake contract in order: live-activity check, role and
// scope checks, cooldown, then insert with version = previous + 1. The
// unique index on (activity, user, version) is the only defense against a
// concurrent double-submit; the loser gets ErrConflictingVersion and must
// resubmit.
func (s *Service) Submit(ctx context.Context, classroomID, userID, payload string) (*models.SubmissionModel, error) {
	activityID, live := s.state.LiveActivity(classroomID)
	if !live {
		return nil, ErrNoActiveActivity
	}

	instructor, err := s.scopes.IsInstructor(ctx, userID, classroomID)
	if err != nil {
		return nil, fmt.Errorf("resolve role: %w", err)
	}
	if instructor {
		return nil, ErrInstructorSubmit
	}

	ok, err := s.scopes.Allows(ctx, userID, authz.ScopeSubmissionCreate, classroomID)
	if err != nil {
		return nil, fmt.Errorf("evaluate scope: %w", err)
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	prev, err := s.latest(ctx, activityID, userID)
	if err != nil {
		return nil, fmt.Errorf("load previous submission: %w", err)
	}

	version := 1
	if prev != nil {
		if s.now().Sub(prev.CreatedAt) < Cooldown {
			return nil, ErrRateLimited
		}
		version = prev.Version + 1
	}

	sub := &models.SubmissionModel{
		ActivityID: activityID,
		UserID:     userID,
		Version:    version,
		Payload:    payload,
	}
	if err := s.db.WithContext(ctx).Create(sub).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if s.logger != nil {
				s.logger.Warn("submission version race lost",
					zap.String("activity", activityID),
					zap.String("user", userID),
					zap.Int("version", version),
				)
			}
			return nil, ErrConflictingVersion
		}
		return nil, fmt.Errorf("persist submission: %w", err)
	}

	s.attachUser(ctx, sub)
	return sub, nil
}

// Latest returns the most recent submission for (activity, user), or nil.
func (s *Service) Latest(ctx context.Context, activityID, userID string) (*models.SubmissionModel, error) {
	return s.latest(ctx, activityID, userID)
}

func (s *Service) latest(ctx context.Context, activityID, userID string) (*models.SubmissionModel, error) {
	var rows []models.SubmissionModel
	err := s.db.WithContext(ctx).
		Where("activity_id = ? AND user_id = ?", activityID, userID).
		Order("version DESC").
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// attachUser resolves the submitter identity for the instructor broadcast.
// Best effort: a missing user row leaves the field nil.
func (s *Service) attachUser(ctx context.Context, sub *models.SubmissionModel) {
	var users []models.UserModel
	if err := s.db.WithContext(ctx).Where("id = ?", sub.UserID).Limit(1).Find(&users).Error; err != nil {
		return
	}
	if len(users) > 0 {
		sub.User = &users[0]
	}
}
