package catalog

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

// FormatPrice renders a price as whole-dollar USD with en-US grouping:
// FormatPrice(25000) == "$25,000".
func FormatPrice(price float64) string {
	return usPrinter.Sprintf("$%d", int64(math.Round(price)))
}

// FormatTimestamp renders a past timestamp relative to now: "Just now"
// under a minute, then minutes/hours/days buckets, then an absolute short
// date once the timestamp is a week old. Bucket lower bounds are inclusive;
// pluralization is singular only at exactly 1.
func FormatTimestamp(ts, now time.Time) string {
	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "Just now"
	case diff < time.Hour:
		return pluralize(int64(diff/time.Minute), "minute")
	case diff < 24*time.Hour:
		return pluralize(int64(diff/time.Hour), "hour")
	case diff < 7*24*time.Hour:
		return pluralize(int64(diff/(24*time.Hour)), "day")
	default:
		return ts.Format("Jan 2, 2006")
	}
}

func pluralize(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// WhatsAppLink builds a wa.me deep link with a pre-filled inquiry for the
// listing. The message names the car model (falling back to the title) and
// the formatted price.
func WhatsAppLink(phoneNumber string, listing Listing) string {
	name := listing.CarModel
	if name == "" {
		name = listing.Title
	}
	text := fmt.Sprintf("Hi, I'm interested in the %s listed for %s. Is it still available?",
		name, FormatPrice(listing.Price))
	escaped := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return fmt.Sprintf("https://wa.me/%s?text=%s", phoneNumber, escaped)
}
