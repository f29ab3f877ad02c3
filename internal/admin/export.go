package admin

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Mahmoudshahin94/M-R-MOTORS/internal/catalog"
)

// ErrNothingToExport reports an export attempt against an empty inventory.
var ErrNothingToExport = errors.New("admin: no cars to export")

// ListingSource supplies the inventory to export.
type ListingSource interface {
	ListListings(ctx context.Context) ([]catalog.Listing, error)
}

// ExporterConfig carries the dependencies for NewExporter.
type ExporterConfig struct {
	Source ListingSource
	Clock  func() time.Time
	Logger *zap.Logger
}

// Exporter serializes the full inventory into a downloadable CSV file.
type Exporter struct {
	source ListingSource
	now    func() time.Time
	logger *zap.Logger
}

// NewExporter validates the configuration and returns a ready exporter.
func NewExporter(config ExporterConfig) (*Exporter, error) {
	if config.Source == nil {
		return nil, errors.New("admin: listing source required")
	}
	now := config.Clock
	if now == nil {
		now = time.Now
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{source: config.Source, now: now, logger: logger}, nil
}

// InventoryFile is a rendered export ready to hand to a download response.
type InventoryFile struct {
	Filename    string
	ContentType string
	Content     []byte
}

var csvHeader = []string{"Title", "Model", "Year", "Price", "Image URL", "Description"}

// ExportInventory renders every listing as one CSV row. Each data field is
// wrapped in double quotes with embedded quotes doubled, and the file is
// named after the export date. An empty inventory is an error so callers
// can tell the user there is nothing to download.
func (e *Exporter) ExportInventory(ctx context.Context) (InventoryFile, error) {
	listings, err := e.source.ListListings(ctx)
	if err != nil {
		e.logger.Error("inventory export failed", zap.Error(err))
		return InventoryFile{}, err
	}
	if len(listings) == 0 {
		return InventoryFile{}, ErrNothingToExport
	}

	var builder strings.Builder
	builder.WriteString(strings.Join(csvHeader, ","))
	builder.WriteByte('\n')
	for _, listing := range listings {
		fields := []string{
			listing.Title,
			listing.CarModel,
			blankIfZeroInt(listing.Year),
			blankIfZeroFloat(listing.Price),
			listing.ImageURL,
			listing.Description,
		}
		for i, field := range fields {
			if i > 0 {
				builder.WriteByte(',')
			}
			builder.WriteByte('"')
			builder.WriteString(strings.ReplaceAll(field, `"`, `""`))
			builder.WriteByte('"')
		}
		builder.WriteByte('\n')
	}

	file := InventoryFile{
		Filename:    fmt.Sprintf("inventory-%s.csv", e.now().UTC().Format("2006-01-02")),
		ContentType: "text/csv",
		Content:     []byte(builder.String()),
	}
	e.logger.Info("inventory exported",
		zap.String("filename", file.Filename),
		zap.Int("listings", len(listings)))
	return file, nil
}

func blankIfZeroInt(value int) string {
	if value == 0 {
		return ""
	}
	return strconv.Itoa(value)
}

func blankIfZeroFloat(value float64) string {
	if value == 0 {
		return ""
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
