package services

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAllCategoriesWithCounts(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCategoryService(db)
	category := seedCategory(t, db)
	seedChallenge(t, db, category.ID, "Visible", 10, "s")

	app := fiber.New()
	app.Get("/categories", svc.GetAllCategories)

	resp, err := app.Test(httptest.NewRequest("GET", "/categories", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"challenge_count":1`)
}

func TestGetAllCategoriesCountFailureSurfaces(t *testing.T) {
	db := setupTestDB(t)
	svc := NewCategoryService(db)
	seedCategory(t, db)

	app := fiber.New()
	app.Get("/categories", svc.GetAllCategories)

	// break the count query's source table
	require.NoError(t, db.Exec("DROP TABLE challenges").Error)

	resp, err := app.Test(httptest.NewRequest("GET", "/categories", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "failed to count category challenges")
}
