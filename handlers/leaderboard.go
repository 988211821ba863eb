// handlers/leaderboard.go
package handlers

import (
	"errors"
	"strconv"

	"challenge-platform/middleware"
	"challenge-platform/models"
	"challenge-platform/services"

	"github.com/gofiber/fiber/v2"
)

func SetupLeaderboardRoutes(app *fiber.App, leaderboardService *services.LeaderboardService) {
	// 🔓 Public routes — gateway auth only
	app.Get("/leaderboard", func(c *fiber.Ctx) error {
		entries, err := leaderboardService.FullBoard()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	app.Get("/leaderboard/top", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		entries, err := leaderboardService.TopPerformers(limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch top performers",
				"cause": err.Error(),
			})
		}
		return c.JSON(entries)
	})

	app.Get("/leaderboard/category/:id", func(c *fiber.Ctx) error {
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		leaders, err := leaderboardService.CategoryLeaders(c.Params("id"), limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch category leaders",
				"cause": err.Error(),
			})
		}
		return c.JSON(leaders)
	})

	app.Get("/leaderboard/difficulty/:difficulty", func(c *fiber.Ctx) error {
		difficulty := c.Params("difficulty")
		switch difficulty {
		case models.DifficultyBeginner, models.DifficultyIntermediate, models.DifficultyAdvanced:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unknown difficulty"})
		}
		limit, _ := strconv.Atoi(c.Query("limit", "10"))
		leaders, err := leaderboardService.DifficultyLeaders(difficulty, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch difficulty leaders",
				"cause": err.Error(),
			})
		}
		return c.JSON(leaders)
	})

	app.Get("/leaderboard/challenge/:id", func(c *fiber.Ctx) error {
		leaders, err := leaderboardService.ChallengeLeaders(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch challenge leaderboard",
				"cause": err.Error(),
			})
		}
		return c.JSON(leaders)
	})

	// 🔐 Secured — the caller's own rank
	app.Get("/leaderboard/me", middleware.UserContextMiddleware(), func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		rank, err := leaderboardService.UserRank(userID)
		if err != nil {
			if errors.Is(err, models.ErrNotOnLeaderboard) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not on leaderboard yet"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch user rank",
				"cause": err.Error(),
			})
		}
		return c.JSON(rank)
	})
}
