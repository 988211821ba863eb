package services

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"challenge-platform/models"
	"challenge-platform/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

type ChallengeService struct {
	DB *gorm.DB
}

func NewChallengeService(db *gorm.DB) *ChallengeService {
	return &ChallengeService{DB: db}
}

// ChallengeSummaryView hides the solution from catalog listings.
type ChallengeSummaryView struct {
	ID          string               `json:"id"`
	Title       string               `json:"title"`
	Slug        string               `json:"slug"`
	Description string               `json:"description"`
	Difficulty  string               `json:"difficulty"`
	Points      int                  `json:"points"`
	TimeLimit   int                  `json:"time_limit"`
	Category    models.Category      `json:"category"`
	Tags        []models.ChallengeTag `json:"tags"`
	CreatedAt   time.Time            `json:"created_at"`
}

func toSummaryView(ch models.Challenge) ChallengeSummaryView {
	return ChallengeSummaryView{
		ID:          ch.ID,
		Title:       ch.Title,
		Slug:        ch.Slug,
		Description: ch.Description,
		Difficulty:  ch.Difficulty,
		Points:      ch.Points,
		TimeLimit:   ch.TimeLimit,
		Category:    ch.Category,
		Tags:        ch.Tags,
		CreatedAt:   ch.CreatedAt,
	}
}

// GetAllChallenges lists published challenges, optionally filtered by
// difficulty, category, tags, or a title/description search.
func (s *ChallengeService) GetAllChallenges(c *fiber.Ctx) error {
	db := s.DB.Model(&models.Challenge{}).
		Where("challenges.status = ?", models.ChallengeStatusPublished).
		Preload("Category").
		Preload("Tags")

	if difficulty := c.Query("difficulty"); difficulty != "" {
		db = db.Where("challenges.difficulty = ?", difficulty)
	}
	if category := c.Query("category"); category != "" {
		db = db.Where("challenges.category_id = ?", category)
	}
	if tags := c.Query("tags"); tags != "" {
		names := strings.Split(tags, ",")
		for i := range names {
			names[i] = strings.TrimSpace(names[i])
		}
		db = db.Joins("JOIN challenge_tag_links ctl ON ctl.challenge_id = challenges.id").
			Joins("JOIN challenge_tags ct ON ct.id = ctl.challenge_tag_id").
			Where("ct.name IN ?", names).
			Distinct("challenges.*")
	}
	if search := c.Query("search"); search != "" {
		term := "%" + strings.ToLower(strings.TrimSpace(search)) + "%"
		db = db.Where("LOWER(challenges.title) LIKE ? OR LOWER(challenges.description) LIKE ?", term, term)
	}

	var challenges []models.Challenge
	if err := db.Order("challenges.created_at DESC").Find(&challenges).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch challenges",
			"cause": err.Error(),
		})
	}

	views := make([]ChallengeSummaryView, len(challenges))
	for i, ch := range challenges {
		views[i] = toSummaryView(ch)
	}
	return c.JSON(views)
}

// GetChallengeByID returns one published challenge with full content (markdown,
// starter code — never the solution) plus the caller's progress when a user
// context is present.
func (s *ChallengeService) GetChallengeByID(c *fiber.Ctx) error {
	var challenge models.Challenge
	if err := s.DB.Where("id = ? AND status = ?", c.Params("id"), models.ChallengeStatusPublished).
		Preload("Category").
		Preload("Tags").
		First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch challenge",
			"cause": err.Error(),
		})
	}

	detail := fiber.Map{
		"id":               challenge.ID,
		"title":            challenge.Title,
		"slug":             challenge.Slug,
		"description":      challenge.Description,
		"difficulty":       challenge.Difficulty,
		"points":           challenge.Points,
		"time_limit":       challenge.TimeLimit,
		"markdown_content": challenge.MarkdownContent,
		"code_template":    challenge.CodeTemplate,
		"category":         challenge.Category,
		"tags":             challenge.Tags,
		"created_at":       challenge.CreatedAt,
	}

	response := fiber.Map{"challenge": detail}
	// Public route: no user middleware, but the Gateway still forwards the
	// header when the caller is logged in.
	if userID := c.Get("X-User-ID"); userID != "" {
		var progress models.UserProgress
		err := s.DB.Where("external_user_id = ? AND challenge_id = ?", userID, challenge.ID).
			First(&progress).Error
		if err == nil {
			response["user_progress"] = progress
		} else {
			response["user_progress"] = nil
		}
	}
	return c.JSON(response)
}

// CreateChallenge creates a new challenge (catalog authors only). Accepts a
// publish_at timestamp to schedule publication instead of going live at once.
func (s *ChallengeService) CreateChallenge(c *fiber.Ctx) error {
	type Req struct {
		Title           string   `json:"title"`
		Description     string   `json:"description"`
		Difficulty      string   `json:"difficulty"`
		Points          int      `json:"points"`
		CategoryID      string   `json:"category_id"`
		MarkdownContent string   `json:"markdown_content"`
		CodeTemplate    string   `json:"code_template"`
		Solution        string   `json:"solution"`
		TimeLimit       int      `json:"time_limit"`
		Status          string   `json:"status"`
		PublishAt       string   `json:"publish_at"` // RFC3339, implies status=scheduled
		Tags            []string `json:"tags"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if req.Title == "" || req.CategoryID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "title and category_id are required"})
	}
	if req.Points <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points must be a positive integer"})
	}
	switch req.Difficulty {
	case models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "difficulty must be beginner, intermediate or advanced"})
	}

	var category models.Category
	if err := s.DB.Where("id = ?", req.CategoryID).First(&category).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "category not found"})
	}

	challenge := models.Challenge{
		ID:              uuid.NewString(),
		Title:           req.Title,
		Slug:            slug.Make(req.Title),
		Description:     req.Description,
		Difficulty:      req.Difficulty,
		Points:          req.Points,
		CategoryID:      req.CategoryID,
		MarkdownContent: req.MarkdownContent,
		CodeTemplate:    req.CodeTemplate,
		Solution:        req.Solution,
		TimeLimit:       req.TimeLimit,
		Status:          models.ChallengeStatusPublished,
	}
	if req.Status == models.ChallengeStatusDraft {
		challenge.Status = models.ChallengeStatusDraft
	}
	if req.PublishAt != "" {
		publishAt, err := time.Parse(time.RFC3339, req.PublishAt)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "publish_at must be RFC3339"})
		}
		challenge.Status = models.ChallengeStatusScheduled
		challenge.PublishAt = &publishAt
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&challenge).Error; err != nil {
			return err
		}
		return s.attachTags(tx, &challenge, req.Tags)
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to create challenge",
			"cause": err.Error(),
		})
	}
	return c.Status(fiber.StatusCreated).JSON(challenge)
}

// attachTags resolves tag names to rows (creating missing ones) and replaces
// the challenge's tag set.
func (s *ChallengeService) attachTags(tx *gorm.DB, challenge *models.Challenge, names []string) error {
	if len(names) == 0 {
		return nil
	}
	var tags []models.ChallengeTag
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		var tag models.ChallengeTag
		err := tx.Where("name = ?", name).First(&tag).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			tag = models.ChallengeTag{ID: uuid.NewString(), Name: name}
			if err := tx.Create(&tag).Error; err != nil {
				return err
			}
		} else if err != nil {
			return err
		}
		tags = append(tags, tag)
	}
	return tx.Model(challenge).Association("Tags").Replace(tags)
}

// UpdateChallenge edits catalog fields. The solution may change between
// cycles; in-flight submissions validate against whichever solution is stored
// when the validator runs.
func (s *ChallengeService) UpdateChallenge(c *fiber.Ctx) error {
	var challenge models.Challenge
	if err := s.DB.Where("id = ?", c.Params("id")).First(&challenge).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch challenge", "cause": err.Error()})
	}

	var req map[string]interface{}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}

	if title, ok := req["title"].(string); ok && title != "" {
		challenge.Title = title
		challenge.Slug = slug.Make(title)
	}
	if description, ok := req["description"].(string); ok {
		challenge.Description = description
	}
	if difficulty, ok := req["difficulty"].(string); ok && difficulty != "" {
		challenge.Difficulty = difficulty
	}
	if points, ok := req["points"].(float64); ok && points > 0 {
		challenge.Points = int(points)
	}
	if markdown, ok := req["markdown_content"].(string); ok {
		challenge.MarkdownContent = markdown
	}
	if template, ok := req["code_template"].(string); ok {
		challenge.CodeTemplate = template
	}
	if solution, ok := req["solution"].(string); ok {
		challenge.Solution = solution
	}
	if status, ok := req["status"].(string); ok && status != "" {
		challenge.Status = status
	}

	if err := s.DB.Save(&challenge).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update challenge", "cause": err.Error()})
	}
	return c.JSON(challenge)
}

// DeleteChallenge archives a challenge instead of deleting it, so existing
// progress rows keep a valid reference.
func (s *ChallengeService) DeleteChallenge(c *fiber.Ctx) error {
	res := s.DB.Model(&models.Challenge{}).
		Where("id = ?", c.Params("id")).
		Update("status", models.ChallengeStatusArchived)
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to archive challenge", "cause": res.Error.Error()})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
	}
	return c.JSON(fiber.Map{"message": "challenge archived"})
}

// AddComment posts a comment (optionally a reply) under a challenge.
func (s *ChallengeService) AddComment(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	challengeID := c.Params("id")

	type Req struct {
		Text     string  `json:"text"`
		ParentID *string `json:"parent_id"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "comment text is required"})
	}

	var challenge models.Challenge
	if err := s.DB.Where("id = ?", challengeID).First(&challenge).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
	}

	if req.ParentID != nil {
		var parent models.Comment
		if err := s.DB.Where("id = ? AND challenge_id = ?", *req.ParentID, challengeID).First(&parent).Error; err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "parent comment not found"})
		}
	}

	comment := models.Comment{
		ID:             uuid.NewString(),
		ChallengeID:    challengeID,
		ExternalUserID: userID,
		Text:           req.Text,
		ParentID:       req.ParentID,
	}
	if err := s.DB.Create(&comment).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create comment", "cause": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// GetComments lists a challenge's top-level comments with replies.
func (s *ChallengeService) GetComments(c *fiber.Ctx) error {
	var comments []models.Comment
	if err := s.DB.Where("challenge_id = ? AND parent_id IS NULL", c.Params("id")).
		Preload("Replies").
		Order("created_at ASC").
		Find(&comments).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch comments", "cause": err.Error()})
	}
	return c.JSON(comments)
}

// GetAllTags lists every tag.
func (s *ChallengeService) GetAllTags(c *fiber.Ctx) error {
	var tags []models.ChallengeTag
	if err := s.DB.Order("name ASC").Find(&tags).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch tags", "cause": err.Error()})
	}
	return c.JSON(tags)
}

// CreateTag creates a tag if it does not already exist.
func (s *ChallengeService) CreateTag(c *fiber.Ctx) error {
	type Req struct {
		Name string `json:"name"`
	}
	var req Req
	if err := c.BodyParser(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tag name is required"})
	}

	tag := models.ChallengeTag{ID: uuid.NewString(), Name: strings.TrimSpace(req.Name)}
	if err := s.DB.Where("name = ?", tag.Name).FirstOrCreate(&tag).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create tag", "cause": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(tag)
}

// uploadIcon stores a small image either on R2 (when configured) or under the
// local uploads dir, returning the public URL.
func uploadIcon(c *fiber.Ctx, field, keyPrefix string) (string, error) {
	file, err := c.FormFile(field)
	if err != nil || file.Size == 0 {
		return "", nil // icon is optional
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext == "" {
		ext = ".png"
	}
	key := keyPrefix + "/" + uuid.NewString() + ext

	if utils.R2Enabled() {
		return utils.UploadFileToR2(file, key)
	}
	if err := utils.SaveFile(file, utils.GetUploadPath(key)); err != nil {
		return "", err
	}
	// Served by the /uploads static mount regardless of the on-disk root
	return "/uploads/" + key, nil
}
