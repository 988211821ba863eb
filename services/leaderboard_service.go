// services/leaderboard_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"challenge-platform/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LeaderboardService struct {
	DB    *gorm.DB
	Cache *LeaderboardCache // optional; nil when REDIS_ADDR is unset
}

func NewLeaderboardService(db *gorm.DB, cache *LeaderboardCache) *LeaderboardService {
	return &LeaderboardService{DB: db, Cache: cache}
}

// OnFirstCompletion refreshes the user's aggregates and re-ranks the board.
// The refresh commits on its own: a re-rank failure leaves totals correct and
// rankings merely stale, never a half-written ranking sequence.
func (s *LeaderboardService) OnFirstCompletion(externalUserID string) error {
	if err := s.RefreshUser(externalUserID); err != nil {
		return fmt.Errorf("refreshing leaderboard entry for %s: %w", externalUserID, err)
	}
	if err := s.RerankAll(); err != nil {
		return fmt.Errorf("re-ranking leaderboard: %w", err)
	}
	return nil
}

// RefreshUser recomputes the user's totals from completed progress rows and
// upserts the leaderboard entry. Always recomputed from source of truth, never
// incremented, so the entry cannot drift.
func (s *LeaderboardService) RefreshUser(externalUserID string) error {
	return transactionWithRetry(s.DB, func(tx *gorm.DB) error {
		totalPoints, err := completedPointsTotal(tx, externalUserID)
		if err != nil {
			return err
		}

		var challengesCompleted int64
		if err := tx.Model(&models.UserProgress{}).
			Where("external_user_id = ? AND status = ?", externalUserID, models.ProgressStatusCompleted).
			Count(&challengesCompleted).Error; err != nil {
			return err
		}

		entry := models.LeaderboardEntry{
			ID:                  uuid.NewString(),
			ExternalUserID:      externalUserID,
			TotalPoints:         totalPoints,
			ChallengesCompleted: int(challengesCompleted),
			LastUpdated:         time.Now(),
		}
		return tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "external_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"total_points", "challenges_completed", "last_updated", "updated_at",
			}),
		}).Create(&entry).Error
	})
}

// RerankAll rewrites the 1..N ranking sequence in one transaction. Rows are
// locked and sorted by (total_points desc, challenges_completed desc) with the
// previous ranking as a stable tie-break; only rows whose rank actually moved
// are written. All-or-nothing: a failure rolls the whole pass back.
func (s *LeaderboardService) RerankAll() error {
	err := transactionWithRetry(s.DB, func(tx *gorm.DB) error {
		var entries []models.LeaderboardEntry
		if err := lockForUpdate(tx).
			Order("total_points DESC, challenges_completed DESC, ranking ASC, external_user_id ASC").
			Find(&entries).Error; err != nil {
			return err
		}

		for i := range entries {
			rank := i + 1
			if entries[i].Ranking == rank {
				continue
			}
			if err := tx.Model(&models.LeaderboardEntry{}).
				Where("id = ?", entries[i].ID).
				Update("ranking", rank).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.refreshCache()
	return nil
}

// refreshCache pushes the current top of the board into Redis. Best effort:
// the DB remains the source of truth and reads fall back to it.
func (s *LeaderboardService) refreshCache() {
	if s.Cache == nil {
		return
	}
	top, err := s.topFromDB(cachedTopSize)
	if err != nil {
		log.Printf("⚠️ Leaderboard cache refresh skipped, DB read failed: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Cache.SetTop(ctx, top); err != nil {
		log.Printf("⚠️ Leaderboard cache refresh failed: %v", err)
	}
}

// FullBoard returns every entry ordered by ranking, decorated with usernames
// from the user mirror.
func (s *LeaderboardService) FullBoard() ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := s.DB.Order("ranking ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	s.decorateUsernames(entries)
	return entries, nil
}

// TopPerformers serves the top of the board from Redis when possible, falling
// back to the database.
func (s *LeaderboardService) TopPerformers(limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	if s.Cache != nil && limit <= cachedTopSize {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		entries, err := s.Cache.GetTop(ctx, limit)
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, errCacheMiss) {
			log.Printf("⚠️ Leaderboard cache read failed, falling back to DB: %v", err)
		}
	}

	entries, err := s.topFromDB(limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *LeaderboardService) topFromDB(limit int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	if err := s.DB.Order("ranking ASC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	s.decorateUsernames(entries)
	return entries, nil
}

// UserRankContext is a user's own entry plus the entries ranked around it.
type UserRankContext struct {
	UserRank    models.LeaderboardEntry   `json:"user_rank"`
	NearbyUsers []models.LeaderboardEntry `json:"nearby_users"`
}

// UserRank returns the caller's entry with up to two neighbours on each side.
func (s *LeaderboardService) UserRank(externalUserID string) (*UserRankContext, error) {
	var entry models.LeaderboardEntry
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotOnLeaderboard
		}
		return nil, err
	}

	lower := entry.Ranking - 2
	if lower < 1 {
		lower = 1
	}
	var nearby []models.LeaderboardEntry
	if err := s.DB.Where("ranking BETWEEN ? AND ? AND id <> ?", lower, entry.Ranking+2, entry.ID).
		Order("ranking ASC").
		Find(&nearby).Error; err != nil {
		return nil, err
	}

	own := []models.LeaderboardEntry{entry}
	s.decorateUsernames(own)
	s.decorateUsernames(nearby)
	return &UserRankContext{UserRank: own[0], NearbyUsers: nearby}, nil
}

// ScopedLeader is a ranked row for the category/difficulty leader views,
// computed on the fly from completed progress rather than the global table.
type ScopedLeader struct {
	Rank                int    `json:"rank"`
	ExternalUserID      string `json:"external_user_id"`
	Username            string `json:"username,omitempty"`
	Points              int    `json:"points"`
	ChallengesCompleted int    `json:"challenges_completed"`
}

// CategoryLeaders ranks users by completed points within one category.
func (s *LeaderboardService) CategoryLeaders(categoryID string, limit int) ([]ScopedLeader, error) {
	return s.scopedLeaders("challenges.category_id = ?", categoryID, limit)
}

// DifficultyLeaders ranks users by completed points within one difficulty.
func (s *LeaderboardService) DifficultyLeaders(difficulty string, limit int) ([]ScopedLeader, error) {
	return s.scopedLeaders("challenges.difficulty = ?", difficulty, limit)
}

func (s *LeaderboardService) scopedLeaders(condition string, value interface{}, limit int) ([]ScopedLeader, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	var leaders []ScopedLeader
	err := s.DB.Model(&models.UserProgress{}).
		Select("user_progresses.external_user_id AS external_user_id, SUM(challenges.points) AS points, COUNT(*) AS challenges_completed").
		Joins("JOIN challenges ON challenges.id = user_progresses.challenge_id").
		Where("user_progresses.status = ?", models.ProgressStatusCompleted).
		Where(condition, value).
		Group("user_progresses.external_user_id").
		Having("SUM(challenges.points) > 0").
		Order("points DESC, challenges_completed DESC, external_user_id ASC").
		Limit(limit).
		Scan(&leaders).Error
	if err != nil {
		return nil, err
	}
	for i := range leaders {
		leaders[i].Rank = i + 1
		leaders[i].Username = s.usernameFor(leaders[i].ExternalUserID)
	}
	return leaders, nil
}

// ChallengeLeader is a per-challenge standing ordered by time spent.
type ChallengeLeader struct {
	Rank           int    `json:"rank"`
	ExternalUserID string `json:"external_user_id"`
	Username       string `json:"username,omitempty"`
	TimeSpent      int    `json:"time_spent"`
	Attempts       int    `json:"attempts"`
}

// ChallengeLeaders ranks everyone who completed a challenge by time spent,
// fastest first.
func (s *LeaderboardService) ChallengeLeaders(challengeID string) ([]ChallengeLeader, error) {
	var rows []models.UserProgress
	if err := s.DB.Where("challenge_id = ? AND status = ?", challengeID, models.ProgressStatusCompleted).
		Order("time_spent ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	leaders := make([]ChallengeLeader, len(rows))
	for i, row := range rows {
		leaders[i] = ChallengeLeader{
			Rank:           i + 1,
			ExternalUserID: row.ExternalUserID,
			Username:       s.usernameFor(row.ExternalUserID),
			TimeSpent:      row.TimeSpent,
			Attempts:       row.Attempts,
		}
	}
	return leaders, nil
}

func (s *LeaderboardService) decorateUsernames(entries []models.LeaderboardEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ExternalUserID
	}
	var mirrors []models.UserMirror
	if err := s.DB.Where("external_user_id IN ?", ids).Find(&mirrors).Error; err != nil {
		return
	}
	byID := make(map[string]string, len(mirrors))
	for _, m := range mirrors {
		byID[m.ExternalUserID] = m.Username
	}
	for i := range entries {
		entries[i].Username = byID[entries[i].ExternalUserID]
	}
}

func (s *LeaderboardService) usernameFor(externalUserID string) string {
	var mirror models.UserMirror
	if err := s.DB.Where("external_user_id = ?", externalUserID).First(&mirror).Error; err != nil {
		return ""
	}
	return mirror.Username
}
