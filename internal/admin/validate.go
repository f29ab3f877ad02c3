package admin

import (
	"net/url"
	"strings"

	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/catalog"
)

const (
	minTitleLength       = 3
	minModelLength       = 2
	minDescriptionLength = 10
	minYear              = 1900
	maxYear              = 2030
)

// Validation collects the outcome of a listing submission check. OK is
// true iff Errors is empty.
type Validation struct {
	OK     bool
	Errors []string
}

// ValidateListing checks a submission against every rule independently and
// reports all violations together, in a fixed order, rather than stopping
// at the first failure.
func ValidateListing(input catalog.ListingInput) Validation {
	var errs []string

	if len(strings.TrimSpace(input.Title)) < minTitleLength {
		errs = append(errs, "Title must be at least 3 characters long")
	}
	if len(strings.TrimSpace(input.CarModel)) < minModelLength {
		errs = append(errs, "Car model must be at least 2 characters long")
	}
	if input.Year < minYear || input.Year > maxYear {
		errs = append(errs, "Please enter a valid year between 1900 and 2030")
	}
	if input.Price < 0 {
		errs = append(errs, "Price must be a positive number")
	}
	if !isAbsoluteURL(input.ImageURL) {
		errs = append(errs, "Please enter a valid image URL")
	}
	if len(strings.TrimSpace(input.Description)) < minDescriptionLength {
		errs = append(errs, "Description must be at least 10 characters long")
	}

	return Validation{OK: len(errs) == 0, Errors: errs}
}

func isAbsoluteURL(raw string) bool {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return parsed.Scheme != "" && parsed.Host != ""
}
