package services

import (
	"sort"
	"testing"

	"challenge-platform/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoUsersRankedByPoints(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestProgressService(db)
	category := seedCategory(t, db)
	hundred := seedChallenge(t, db, category.ID, "Hundred", 100, "a")
	eighty := seedChallenge(t, db, category.ID, "Eighty", 80, "b")

	_, _, _, err := svc.SubmitChallenge("alice", hundred.ID, "a", 0)
	require.NoError(t, err)
	_, _, _, err = svc.SubmitChallenge("bob", eighty.ID, "b", 0)
	require.NoError(t, err)

	var alice, bob models.LeaderboardEntry
	require.NoError(t, db.Where("external_user_id = ?", "alice").First(&alice).Error)
	require.NoError(t, db.Where("external_user_id = ?", "bob").First(&bob).Error)

	assert.Equal(t, 100, alice.TotalPoints)
	assert.Equal(t, 1, alice.Ranking)
	assert.Equal(t, 80, bob.TotalPoints)
	assert.Equal(t, 2, bob.Ranking)
}

func TestRankingsFormContiguousSequence(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestProgressService(db)
	category := seedCategory(t, db)

	challenges := []models.Challenge{
		seedChallenge(t, db, category.ID, "C1", 10, "s1"),
		seedChallenge(t, db, category.ID, "C2", 20, "s2"),
		seedChallenge(t, db, category.ID, "C3", 30, "s3"),
		seedChallenge(t, db, category.ID, "C4", 40, "s4"),
	}
	users := []string{"u1", "u2", "u3", "u4", "u5"}

	// interleaved completions across users
	for i, user := range users {
		for j, ch := range challenges {
			if (i+j)%2 == 0 {
				_, _, _, err := svc.SubmitChallenge(user, ch.ID, ch.Solution, 0)
				require.NoError(t, err)
			}
		}
	}

	var entries []models.LeaderboardEntry
	require.NoError(t, db.Find(&entries).Error)
	require.NotEmpty(t, entries)

	rankings := make([]int, len(entries))
	for i, e := range entries {
		rankings[i] = e.Ranking
	}
	sort.Ints(rankings)
	for i, r := range rankings {
		assert.Equal(t, i+1, r, "rankings must be exactly 1..N")
	}

	// sorted consistently with (total_points desc, challenges_completed desc)
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ranking < entries[j].Ranking })
	for i := 1; i < len(entries); i++ {
		prev, cur := entries[i-1], entries[i]
		better := prev.TotalPoints > cur.TotalPoints ||
			(prev.TotalPoints == cur.TotalPoints && prev.ChallengesCompleted >= cur.ChallengesCompleted)
		assert.True(t, better, "entry ranked %d must not beat entry ranked %d", cur.Ranking, prev.Ranking)
	}
}

func TestTotalsMatchCompletedProgress(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestProgressService(db)
	category := seedCategory(t, db)
	c1 := seedChallenge(t, db, category.ID, "C1", 25, "s1")
	c2 := seedChallenge(t, db, category.ID, "C2", 35, "s2")
	c3 := seedChallenge(t, db, category.ID, "C3", 45, "s3")

	_, _, _, err := svc.SubmitChallenge("user-1", c1.ID, "s1", 0)
	require.NoError(t, err)
	_, _, _, err = svc.SubmitChallenge("user-1", c2.ID, "wrong", 0)
	require.NoError(t, err)
	_, _, _, err = svc.SubmitChallenge("user-1", c3.ID, "s3", 0)
	require.NoError(t, err)

	var entry models.LeaderboardEntry
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&entry).Error)

	total, err := completedPointsTotal(db, "user-1")
	require.NoError(t, err)
	assert.Equal(t, total, entry.TotalPoints)
	assert.Equal(t, 70, entry.TotalPoints)
	assert.Equal(t, 2, entry.ChallengesCompleted)
}

func TestTieBrokenByChallengesCompleted(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestProgressService(db)
	category := seedCategory(t, db)
	big := seedChallenge(t, db, category.ID, "Big", 60, "big")
	small1 := seedChallenge(t, db, category.ID, "Small1", 30, "s1")
	small2 := seedChallenge(t, db, category.ID, "Small2", 30, "s2")

	// alice: one 60-point completion; bob: two totalling 60
	_, _, _, err := svc.SubmitChallenge("alice", big.ID, "big", 0)
	require.NoError(t, err)
	_, _, _, err = svc.SubmitChallenge("bob", small1.ID, "s1", 0)
	require.NoError(t, err)
	_, _, _, err = svc.SubmitChallenge("bob", small2.ID, "s2", 0)
	require.NoError(t, err)

	var alice, bob models.LeaderboardEntry
	require.NoError(t, db.Where("external_user_id = ?", "alice").First(&alice).Error)
	require.NoError(t, db.Where("external_user_id = ?", "bob").First(&bob).Error)

	assert.Equal(t, alice.TotalPoints, bob.TotalPoints)
	assert.Equal(t, 1, bob.Ranking, "more completions wins the tie")
	assert.Equal(t, 2, alice.Ranking)
}

func TestRerankAllIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	progressSvc := newTestProgressService(db)
	svc := progressSvc.Leaderboard
	category := seedCategory(t, db)
	c1 := seedChallenge(t, db, category.ID, "C1", 50, "s1")
	c2 := seedChallenge(t, db, category.ID, "C2", 40, "s2")

	_, _, _, err := progressSvc.SubmitChallenge("alice", c1.ID, "s1", 0)
	require.NoError(t, err)
	_, _, _, err = progressSvc.SubmitChallenge("bob", c2.ID, "s2", 0)
	require.NoError(t, err)

	var before []models.LeaderboardEntry
	require.NoError(t, db.Order("ranking ASC").Find(&before).Error)

	require.NoError(t, svc.RerankAll())

	var after []models.LeaderboardEntry
	require.NoError(t, db.Order("ranking ASC").Find(&after).Error)

	require.Equal(t, len(before), len(after))
	for i := range before {
		assert.Equal(t, before[i].ExternalUserID, after[i].ExternalUserID)
		assert.Equal(t, before[i].Ranking, after[i].Ranking)
		assert.Equal(t, before[i].TotalPoints, after[i].TotalPoints)
	}
}

func TestRefreshUserRecomputesInsteadOfIncrementing(t *testing.T) {
	db := setupTestDB(t)
	progressSvc := newTestProgressService(db)
	svc := progressSvc.Leaderboard
	category := seedCategory(t, db)
	challenge := seedChallenge(t, db, category.ID, "C1", 50, "s1")

	_, _, _, err := progressSvc.SubmitChallenge("alice", challenge.ID, "s1", 0)
	require.NoError(t, err)

	// drift the denormalized entry, then refresh: totals must snap back
	require.NoError(t, db.Model(&models.LeaderboardEntry{}).
		Where("external_user_id = ?", "alice").
		Update("total_points", 9000).Error)

	require.NoError(t, svc.RefreshUser("alice"))

	var entry models.LeaderboardEntry
	require.NoError(t, db.Where("external_user_id = ?", "alice").First(&entry).Error)
	assert.Equal(t, 50, entry.TotalPoints)
}

func TestUserRankWithNearbyUsers(t *testing.T) {
	db := setupTestDB(t)
	progressSvc := newTestProgressService(db)
	svc := progressSvc.Leaderboard
	category := seedCategory(t, db)

	points := []int{100, 90, 80, 70, 60}
	users := []string{"u1", "u2", "u3", "u4", "u5"}
	for i, user := range users {
		ch := seedChallenge(t, db, category.ID, user+"-ch", points[i], "s")
		_, _, _, err := progressSvc.SubmitChallenge(user, ch.ID, "s", 0)
		require.NoError(t, err)
	}

	rank, err := svc.UserRank("u3")
	require.NoError(t, err)
	assert.Equal(t, 3, rank.UserRank.Ranking)
	require.Len(t, rank.NearbyUsers, 4)
	assert.Equal(t, 1, rank.NearbyUsers[0].Ranking)
	assert.Equal(t, 5, rank.NearbyUsers[3].Ranking)

	_, err = svc.UserRank("stranger")
	assert.ErrorIs(t, err, models.ErrNotOnLeaderboard)
}

func TestScopedAndChallengeLeaders(t *testing.T) {
	db := setupTestDB(t)
	progressSvc := newTestProgressService(db)
	svc := progressSvc.Leaderboard
	category := seedCategory(t, db)
	other := models.Category{ID: "cat-2", Name: "Strings"}
	require.NoError(t, db.Create(&other).Error)

	inCat := seedChallenge(t, db, category.ID, "InCat", 50, "s1")
	outCat := models.Challenge{
		ID:         "out-1",
		Title:      "OutCat",
		Difficulty: models.DifficultyAdvanced,
		Points:     200,
		CategoryID: other.ID,
		Solution:   "s2",
		Status:     models.ChallengeStatusPublished,
	}
	require.NoError(t, db.Create(&outCat).Error)

	_, _, _, err := progressSvc.SubmitChallenge("alice", inCat.ID, "s1", 120)
	require.NoError(t, err)
	_, _, _, err = progressSvc.SubmitChallenge("bob", inCat.ID, "s1", 60)
	require.NoError(t, err)
	_, _, _, err = progressSvc.SubmitChallenge("bob", outCat.ID, "s2", 0)
	require.NoError(t, err)

	leaders, err := svc.CategoryLeaders(category.ID, 10)
	require.NoError(t, err)
	require.Len(t, leaders, 2)
	assert.Equal(t, 50, leaders[0].Points, "out-of-category points must not leak in")

	advanced, err := svc.DifficultyLeaders(models.DifficultyAdvanced, 10)
	require.NoError(t, err)
	require.Len(t, advanced, 1)
	assert.Equal(t, "bob", advanced[0].ExternalUserID)
	assert.Equal(t, 200, advanced[0].Points)

	// per-challenge board orders by time spent, fastest first
	byTime, err := svc.ChallengeLeaders(inCat.ID)
	require.NoError(t, err)
	require.Len(t, byTime, 2)
	assert.Equal(t, "bob", byTime[0].ExternalUserID)
	assert.Equal(t, 1, byTime[0].Rank)
	assert.Equal(t, "alice", byTime[1].ExternalUserID)
}

func TestFullBoardDecoratesUsernames(t *testing.T) {
	db := setupTestDB(t)
	progressSvc := newTestProgressService(db)
	svc := progressSvc.Leaderboard
	category := seedCategory(t, db)
	challenge := seedChallenge(t, db, category.ID, "C1", 50, "s1")

	_, _, _, err := progressSvc.SubmitChallenge("alice", challenge.ID, "s1", 0)
	require.NoError(t, err)

	require.NoError(t, db.Create(&models.UserMirror{
		ID:             "mirror-1",
		ExternalUserID: "alice",
		Username:       "alice_codes",
	}).Error)

	board, err := svc.FullBoard()
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "alice_codes", board[0].Username)
}

func TestRefreshUserSurfacesAggregateError(t *testing.T) {
	db := setupTestDB(t)
	svc := newTestProgressService(db)
	category := seedCategory(t, db)
	challenge := seedChallenge(t, db, category.ID, "Stable", 70, "s")

	_, _, _, err := svc.SubmitChallenge("user-1", challenge.ID, "s", 0)
	require.NoError(t, err)

	// break the aggregate query's source table
	require.NoError(t, db.Exec("DROP TABLE challenges").Error)

	err = svc.Leaderboard.RefreshUser("user-1")
	require.Error(t, err)

	// the committed entry keeps its correct totals, not a zeroed refresh
	var entry models.LeaderboardEntry
	require.NoError(t, db.Where("external_user_id = ?", "user-1").First(&entry).Error)
	assert.Equal(t, 70, entry.TotalPoints)
	assert.Equal(t, 1, entry.ChallengesCompleted)
}
