// services/progress_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"challenge-platform/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompletionOutcome tags what a passing (or failing) submission did to the
// progress row, so callers branch on an explicit result instead of comparing
// before/after status strings.
type CompletionOutcome int

const (
	StillFailed CompletionOutcome = iota
	NewlyCompleted
	AlreadyCompleted
)

type ProgressService struct {
	DB          *gorm.DB
	Validator   SubmissionValidator
	Leaderboard *LeaderboardService
}

func NewProgressService(db *gorm.DB, leaderboard *LeaderboardService) *ProgressService {
	return &ProgressService{DB: db, Validator: EqualityValidator{}, Leaderboard: leaderboard}
}

// getChallenge loads the challenge a submission refers to. Only published
// challenges accept starts and submissions; drafts, scheduled and archived
// ones look like not-found to users. Challenges are immutable during a
// submission cycle, so reading outside the progress transaction is fine.
func (s *ProgressService) getChallenge(challengeID string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.DB.Where("id = ? AND status = ?", challengeID, models.ChallengeStatusPublished).
		First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrChallengeNotFound
		}
		return nil, err
	}
	return &challenge, nil
}

// getOrCreateProgress upserts the (user, challenge) progress row and returns
// it locked for update. The insert uses ON CONFLICT DO NOTHING against the
// unique pair index so two concurrent callers never race an exists-check.
func getOrCreateProgress(tx *gorm.DB, externalUserID, challengeID string) (*models.UserProgress, bool, error) {
	candidate := models.UserProgress{
		ID:             uuid.NewString(),
		ExternalUserID: externalUserID,
		ChallengeID:    challengeID,
		Status:         models.ProgressStatusStarted,
		StartTime:      time.Now(),
	}
	res := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_user_id"}, {Name: "challenge_id"}},
		DoNothing: true,
	}).Create(&candidate)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	var prog models.UserProgress
	if err := lockForUpdate(tx).
		Where("external_user_id = ? AND challenge_id = ?", externalUserID, challengeID).
		First(&prog).Error; err != nil {
		return nil, false, err
	}
	return &prog, created, nil
}

// StartChallenge records that the user opened a challenge. A fresh row starts
// at zero attempts; re-entering a non-completed challenge counts as another
// attempt. A completed row is never touched.
func (s *ProgressService) StartChallenge(externalUserID, challengeID string) (*models.UserProgress, error) {
	if _, err := s.getChallenge(challengeID); err != nil {
		return nil, err
	}

	var prog *models.UserProgress
	err := transactionWithRetry(s.DB, func(tx *gorm.DB) error {
		p, created, err := getOrCreateProgress(tx, externalUserID, challengeID)
		if err != nil {
			return err
		}
		if !created && p.Status != models.ProgressStatusCompleted {
			p.Attempts++
			if err := tx.Save(p).Error; err != nil {
				return err
			}
		}
		prog = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// SubmitChallenge runs one full submission cycle: persist the attempt,
// validate, transition the state machine, and on a first completion award
// achievements inside the same transaction. The leaderboard refresh runs
// after commit (see OnFirstCompletion) so a ranking failure never rolls back
// the completion itself.
func (s *ProgressService) SubmitChallenge(externalUserID, challengeID, submissionCode string, timeSpent int) (*models.UserProgress, ValidationResult, CompletionOutcome, error) {
	challenge, err := s.getChallenge(challengeID)
	if err != nil {
		return nil, ValidationResult{}, StillFailed, err
	}
	if timeSpent < 0 {
		timeSpent = 0
	}

	result := s.Validator.Validate(challenge, submissionCode)

	var prog *models.UserProgress
	outcome := StillFailed
	err = transactionWithRetry(s.DB, func(tx *gorm.DB) error {
		p, _, err := getOrCreateProgress(tx, externalUserID, challengeID)
		if err != nil {
			return err
		}

		wasCompleted := p.CompletedAt != nil
		now := time.Now()

		p.Status = models.ProgressStatusSubmitted
		p.SubmissionCode = submissionCode
		p.TimeSpent += timeSpent
		p.Attempts++
		p.LastAttemptTime = &now
		if err := tx.Save(p).Error; err != nil {
			return err
		}

		switch {
		case wasCompleted:
			// completed is terminal: history updates above stick, but the
			// status never regresses and completed_at is never cleared
			p.Status = models.ProgressStatusCompleted
			outcome = AlreadyCompleted
		case result.Passed:
			p.Status = models.ProgressStatusCompleted
			p.CompletedAt = &now
			outcome = NewlyCompleted
		default:
			p.Status = models.ProgressStatusFailed
			outcome = StillFailed
		}
		if err := tx.Save(p).Error; err != nil {
			return err
		}

		if outcome == NewlyCompleted {
			awarded, err := NewAchievementService(tx).AwardQualifying(externalUserID)
			if err != nil {
				return fmt.Errorf("awarding achievements: %w", err)
			}
			for _, a := range awarded {
				log.Printf("🏆 Achievement awarded: %s → %s", a.Name, externalUserID)
			}
		}

		prog = p
		return nil
	})
	if err != nil {
		return nil, result, StillFailed, err
	}

	if outcome == NewlyCompleted && s.Leaderboard != nil {
		// Progress and achievements are already committed; a ranking failure
		// is reported to the caller, not dropped.
		if err := s.Leaderboard.OnFirstCompletion(externalUserID); err != nil {
			return prog, result, outcome, err
		}
	}
	return prog, result, outcome, nil
}

// UserProgressList returns all progress rows for a user, newest activity first.
func (s *ProgressService) UserProgressList(externalUserID string) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	err := s.DB.Where("external_user_id = ?", externalUserID).
		Preload("Challenge").
		Order("updated_at DESC").
		Find(&rows).Error
	return rows, err
}

// ChallengeSummary aggregates a user's standing across the published catalog.
type ChallengeSummary struct {
	TotalChallenges      int64            `json:"total_challenges"`
	CompletedChallenges  int64            `json:"completed_challenges"`
	InProgressChallenges int64            `json:"in_progress_challenges"`
	CompletionPercentage float64          `json:"completion_percentage"`
	TotalPointsEarned    int              `json:"total_points_earned"`
	DifficultyCompletion map[string]int64 `json:"difficulty_completion"`
	CategoryCompletion   map[string]int64 `json:"category_completion"`
}

func (s *ProgressService) UserChallengeSummary(externalUserID string) (*ChallengeSummary, error) {
	summary := &ChallengeSummary{
		DifficultyCompletion: map[string]int64{},
		CategoryCompletion:   map[string]int64{},
	}

	if err := s.DB.Model(&models.Challenge{}).
		Where("status = ?", models.ChallengeStatusPublished).
		Count(&summary.TotalChallenges).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.UserProgress{}).
		Where("external_user_id = ? AND status = ?", externalUserID, models.ProgressStatusCompleted).
		Count(&summary.CompletedChallenges).Error; err != nil {
		return nil, err
	}
	if err := s.DB.Model(&models.UserProgress{}).
		Where("external_user_id = ? AND status <> ?", externalUserID, models.ProgressStatusCompleted).
		Count(&summary.InProgressChallenges).Error; err != nil {
		return nil, err
	}
	if summary.TotalChallenges > 0 {
		summary.CompletionPercentage = float64(summary.CompletedChallenges) / float64(summary.TotalChallenges) * 100
	}

	totalPoints, err := completedPointsTotal(s.DB, externalUserID)
	if err != nil {
		return nil, err
	}
	summary.TotalPointsEarned = totalPoints

	type bucket struct {
		Key   string
		Count int64
	}
	var byDifficulty []bucket
	if err := s.DB.Model(&models.UserProgress{}).
		Select("challenges.difficulty AS key, COUNT(*) AS count").
		Joins("JOIN challenges ON challenges.id = user_progresses.challenge_id").
		Where("user_progresses.external_user_id = ? AND user_progresses.status = ?", externalUserID, models.ProgressStatusCompleted).
		Group("challenges.difficulty").
		Scan(&byDifficulty).Error; err != nil {
		return nil, err
	}
	for _, b := range byDifficulty {
		summary.DifficultyCompletion[b.Key] = b.Count
	}

	var byCategory []bucket
	if err := s.DB.Model(&models.UserProgress{}).
		Select("categories.name AS key, COUNT(*) AS count").
		Joins("JOIN challenges ON challenges.id = user_progresses.challenge_id").
		Joins("JOIN categories ON categories.id = challenges.category_id").
		Where("user_progresses.external_user_id = ? AND user_progresses.status = ?", externalUserID, models.ProgressStatusCompleted).
		Group("categories.name").
		Scan(&byCategory).Error; err != nil {
		return nil, err
	}
	for _, b := range byCategory {
		summary.CategoryCompletion[b.Key] = b.Count
	}

	return summary, nil
}

// completedPointsTotal recomputes a user's completed-points total from the
// source of truth. Shared by the achievement and leaderboard services. A
// query failure must surface to the caller: treating it as zero would let a
// refresh overwrite a correct leaderboard entry.
func completedPointsTotal(db *gorm.DB, externalUserID string) (int, error) {
	var total int
	err := db.Model(&models.UserProgress{}).
		Select("COALESCE(SUM(challenges.points), 0)").
		Joins("JOIN challenges ON challenges.id = user_progresses.challenge_id").
		Where("user_progresses.external_user_id = ? AND user_progresses.status = ?", externalUserID, models.ProgressStatusCompleted).
		Scan(&total).Error
	return total, err
}
