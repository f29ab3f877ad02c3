package admin

import (
	"strconv"
	"time"

	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/catalog"
)

// DefaultPlaceholderImage is shown in the inventory table when a listing
// carries no image URL.
const DefaultPlaceholderImage = "https://via.placeholder.com/80x60?text=No+Image"

// Row is one listing projected for the inventory table. Every column is
// display-ready: blanks are substituted so the table never renders empty
// cells, and Price carries the formatted string alongside the raw value
// for sorting.
type Row struct {
	ID          string
	Title       string
	Model       string
	Year        string
	Price       string
	PriceRaw    float64
	ImageURL    string
	Description string
	CreatedAt   time.Time
	OwnerID     string
}

// FormatRow projects a listing into a table row, applying display
// fallbacks. An empty placeholderImage falls back to
// DefaultPlaceholderImage.
func FormatRow(listing catalog.Listing, placeholderImage string) Row {
	if placeholderImage == "" {
		placeholderImage = DefaultPlaceholderImage
	}

	title := listing.Title
	if title == "" {
		title = listing.CarModel
	}
	if title == "" {
		title = "Untitled"
	}

	model := listing.CarModel
	if model == "" {
		model = "-"
	}

	year := "-"
	if listing.Year != 0 {
		year = strconv.Itoa(listing.Year)
	}

	imageURL := listing.ImageURL
	if imageURL == "" {
		imageURL = placeholderImage
	}

	return Row{
		ID:          listing.ID,
		Title:       title,
		Model:       model,
		Year:        year,
		Price:       catalog.FormatPrice(listing.Price),
		PriceRaw:    listing.Price,
		ImageURL:    imageURL,
		Description: listing.Description,
		CreatedAt:   listing.CreatedAt,
		OwnerID:     listing.OwnerID,
	}
}

// FormatRows projects a slice of listings, preserving order.
func FormatRows(listings []catalog.Listing, placeholderImage string) []Row {
	rows := make([]Row, 0, len(listings))
	for _, listing := range listings {
		rows = append(rows, FormatRow(listing, placeholderImage))
	}
	return rows
}
