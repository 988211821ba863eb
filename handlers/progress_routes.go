// handlers/progress_routes.go
package handlers

import (
	"path/filepath"
	"strconv"

	"challenge-platform/middleware"
	"challenge-platform/models"
	"challenge-platform/services"
	"challenge-platform/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

func SetupProgressRoutes(app *fiber.App, progressService *services.ProgressService, achievementService *services.AchievementService) {
	// 🔐 Secured routes — require user context (userID, roles)
	userGroup := app.Group("/user", middleware.UserContextMiddleware())

	userGroup.Get("/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		rows, err := progressService.UserProgressList(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get progress",
				"cause": err.Error(),
			})
		}
		return c.JSON(rows)
	})

	userGroup.Get("/progress/summary", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		summary, err := progressService.UserChallengeSummary(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build summary",
				"cause": err.Error(),
			})
		}
		return c.JSON(summary)
	})

	userGroup.Get("/achievements", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		rows, err := achievementService.UserAchievements(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(rows)
	})

	app.Get("/achievements/available", middleware.UserContextMiddleware(), func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		rows, err := achievementService.AvailableAchievements(userID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to get available achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(rows)
	})

	app.Get("/achievements", func(c *fiber.Ctx) error {
		rows, err := achievementService.ListAll()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to list achievements",
				"cause": err.Error(),
			})
		}
		return c.JSON(rows)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware())

	adminGroup.Post("/achievements", func(c *fiber.Ctx) error {
		name := c.FormValue("name")
		if name == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
		}
		points, err := strconv.Atoi(c.FormValue("points_required"))
		if err != nil || points <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points_required must be a positive integer"})
		}

		iconURL, err := uploadAchievementIcon(c)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to upload badge icon",
				"cause": err.Error(),
			})
		}

		achievement := models.Achievement{
			ID:             uuid.NewString(),
			Name:           name,
			Description:    c.FormValue("description"),
			PointsRequired: points,
			BadgeIconURL:   iconURL,
		}
		if err := achievementService.DB.Create(&achievement).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to create achievement",
				"cause": err.Error(),
			})
		}
		return c.Status(fiber.StatusCreated).JSON(achievement)
	})
}

func uploadAchievementIcon(c *fiber.Ctx) (string, error) {
	file, err := c.FormFile("badge_icon")
	if err != nil || file.Size == 0 {
		return "", nil
	}
	ext := filepath.Ext(file.Filename)
	if ext == "" {
		ext = ".png"
	}
	key := "achievements/" + uuid.NewString() + ext
	if utils.R2Enabled() {
		return utils.UploadFileToR2(file, key)
	}
	if err := utils.SaveFile(file, utils.GetUploadPath(key)); err != nil {
		return "", err
	}
	return "/uploads/" + key, nil
}
