// handlers/challenge.go
package handlers

import (
	"errors"
	"fmt"
	"strconv"

	"challenge-platform/middleware"
	"challenge-platform/models"
	"challenge-platform/services"

	"github.com/gofiber/fiber/v2"
)

func SetupChallengeRoutes(app *fiber.App, challengeService *services.ChallengeService, categoryService *services.CategoryService, progressService *services.ProgressService) {
	// 🔓 Public routes — *no user context*, but **still require Gateway auth**
	app.Get("/challenges", challengeService.GetAllChallenges)
	app.Get("/challenges/:id", challengeService.GetChallengeByID)
	app.Get("/challenges/:id/comments", challengeService.GetComments)
	app.Get("/categories", categoryService.GetAllCategories)
	app.Get("/tags", challengeService.GetAllTags)

	// 🔐 Secured routes — require user context (userID, roles). The middleware
	// is attached per route so the public GETs above stay reachable without a
	// user header.
	userCtx := middleware.UserContextMiddleware()

	app.Post("/challenges", userCtx, challengeService.CreateChallenge)
	app.Put("/challenges/:id", userCtx, challengeService.UpdateChallenge)
	app.Patch("/challenges/:id", userCtx, challengeService.UpdateChallenge)
	app.Delete("/challenges/:id", userCtx, challengeService.DeleteChallenge)

	app.Post("/categories", userCtx, categoryService.CreateCategory)
	app.Put("/categories/:id", userCtx, categoryService.UpdateCategory)
	app.Delete("/categories/:id", userCtx, categoryService.DeleteCategory)
	app.Post("/tags", userCtx, challengeService.CreateTag)

	app.Post("/challenges/:id/comments", userCtx, challengeService.AddComment)

	// ✅ Submission flow
	app.Post("/challenges/:id/start", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		progress, err := progressService.StartChallenge(userID, c.Params("id"))
		if err != nil {
			return progressError(c, err)
		}
		return c.JSON(progress)
	})

	app.Post("/challenges/:id/submit", userCtx, func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var body map[string]interface{}
		if err := c.BodyParser(&body); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		submissionCode, _ := body["submission_code"].(string)
		timeSpent, err := coerceTimeSpent(body["time_spent"])
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}

		progress, result, _, err := progressService.SubmitChallenge(userID, c.Params("id"), submissionCode, timeSpent)
		if err != nil {
			if progress != nil {
				// Submission itself committed; leaderboard propagation failed
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":             "submission recorded but leaderboard update failed",
					"cause":             err.Error(),
					"user_progress":     progress,
					"validation_result": result,
				})
			}
			return progressError(c, err)
		}

		return c.JSON(fiber.Map{
			"user_progress":     progress,
			"validation_result": result,
		})
	})
}

// coerceTimeSpent accepts the JSON number or numeric-string forms clients
// send; anything else is rejected. Missing means zero.
func coerceTimeSpent(v interface{}) (int, error) {
	switch value := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return int(value), nil
	case string:
		if value == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("time_spent must be numeric")
		}
		return n, nil
	default:
		return 0, fmt.Errorf("time_spent must be numeric")
	}
}

func progressError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, models.ErrChallengeNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "challenge not found"})
	case errors.Is(err, models.ErrConcurrencyConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "concurrent update conflict, please retry", "cause": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error", "cause": err.Error()})
	}
}
