package services

import (
	"errors"

	"challenge-platform/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryService struct {
	DB *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService {
	return &CategoryService{DB: db}
}

// GetAllCategories returns every category with its published challenge count.
func (s *CategoryService) GetAllCategories(c *fiber.Ctx) error {
	type CategoryWithCount struct {
		models.Category
		ChallengeCount int64 `json:"challenge_count"`
	}

	var categories []models.Category
	if err := s.DB.Order("name ASC").Find(&categories).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch categories",
			"cause": err.Error(),
		})
	}

	result := make([]CategoryWithCount, len(categories))
	for i, category := range categories {
		var count int64
		if err := s.DB.Model(&models.Challenge{}).
			Where("category_id = ? AND status = ?", category.ID, models.ChallengeStatusPublished).
			Count(&count).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to count category challenges",
				"cause": err.Error(),
			})
		}
		result[i] = CategoryWithCount{Category: category, ChallengeCount: count}
	}
	return c.JSON(result)
}

// CreateCategory creates a category from a multipart form; the optional icon
// image goes to R2 (or local uploads when R2 is not configured).
func (s *CategoryService) CreateCategory(c *fiber.Ctx) error {
	name := c.FormValue("name")
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}

	iconURL, err := uploadIcon(c, "icon", "category_icons")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload category icon", "cause": err.Error()})
	}

	category := models.Category{
		ID:          uuid.NewString(),
		Name:        name,
		Description: c.FormValue("description"),
		IconURL:     iconURL,
	}
	if err := s.DB.Create(&category).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create category", "cause": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

// UpdateCategory edits name/description and optionally replaces the icon.
func (s *CategoryService) UpdateCategory(c *fiber.Ctx) error {
	var category models.Category
	if err := s.DB.Where("id = ?", c.Params("id")).First(&category).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "category not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to fetch category", "cause": err.Error()})
	}

	if name := c.FormValue("name"); name != "" {
		category.Name = name
	}
	if description := c.FormValue("description"); description != "" {
		category.Description = description
	}
	iconURL, err := uploadIcon(c, "icon", "category_icons")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload category icon", "cause": err.Error()})
	}
	if iconURL != "" {
		category.IconURL = iconURL
	}

	if err := s.DB.Save(&category).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to update category", "cause": err.Error()})
	}
	return c.JSON(category)
}

// DeleteCategory removes a category that has no challenges attached.
func (s *CategoryService) DeleteCategory(c *fiber.Ctx) error {
	var count int64
	if err := s.DB.Model(&models.Challenge{}).
		Where("category_id = ?", c.Params("id")).
		Count(&count).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to check category usage", "cause": err.Error()})
	}
	if count > 0 {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "category still has challenges attached"})
	}

	res := s.DB.Where("id = ?", c.Params("id")).Delete(&models.Category{})
	if res.Error != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete category", "cause": res.Error.Error()})
	}
	if res.RowsAffected == 0 {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "category not found"})
	}
	return c.JSON(fiber.Map{"message": "category deleted"})
}
