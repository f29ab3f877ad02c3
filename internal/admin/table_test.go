package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/catalog"
)

func TestFormatRowCompleteListing(t *testing.T) {
	created := time.Date(2026, time.August, 20, 9, 0, 0, 0, time.UTC)
	row := FormatRow(catalog.Listing{
		ID:          "l-1",
		Title:       "Clean daily driver",
		CarModel:    "Honda Civic",
		Year:        2019,
		Price:       15500,
		ImageURL:    "https://cdn.example.com/civic.jpg",
		Description: "One owner.",
		OwnerID:     "user-dealer",
		CreatedAt:   created,
	}, "")

	assert.Equal(t, "Clean daily driver", row.Title)
	assert.Equal(t, "Honda Civic", row.Model)
	assert.Equal(t, "2019", row.Year)
	assert.Equal(t, "$15,500", row.Price)
	assert.Equal(t, 15500.0, row.PriceRaw)
	assert.Equal(t, "https://cdn.example.com/civic.jpg", row.ImageURL)
	assert.Equal(t, created, row.CreatedAt)
	assert.Equal(t, "user-dealer", row.OwnerID)
}

func TestFormatRowAppliesFallbacks(t *testing.T) {
	row := FormatRow(catalog.Listing{ID: "l-2"}, "")

	assert.Equal(t, "Untitled", row.Title)
	assert.Equal(t, "-", row.Model)
	assert.Equal(t, "-", row.Year)
	assert.Equal(t, "$0", row.Price)
	assert.Equal(t, DefaultPlaceholderImage, row.ImageURL)
}

func TestFormatRowTitleFallsBackToModel(t *testing.T) {
	row := FormatRow(catalog.Listing{CarModel: "Mazda MX-5"}, "")
	assert.Equal(t, "Mazda MX-5", row.Title)
}

func TestFormatRowCustomPlaceholder(t *testing.T) {
	row := FormatRow(catalog.Listing{}, "https://static.example.com/none.png")
	assert.Equal(t, "https://static.example.com/none.png", row.ImageURL)
}

func TestFormatRowsPreservesOrder(t *testing.T) {
	rows := FormatRows([]catalog.Listing{{ID: "a"}, {ID: "b"}}, "")
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "b", rows[1].ID)
}
