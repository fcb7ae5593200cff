package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"citibike/internal/domain"
	"citibike/internal/utils"

	"github.com/phpdave11/gofpdf"
)

type TopRoutesReader interface {
	Top(ctx context.Context, limit int, station string) ([]domain.AggregateRoute, error)
}

// ReportService renders the most used routes as PDF.
type ReportService struct {
	Routes    TopRoutesReader
	RequestID string
	Now       func() time.Time
}

func (s ReportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// TopRoutesPDF returns the PDF bytes and a suggested file name.
func (s ReportService) TopRoutesPDF(ctx context.Context, limit int, station string) ([]byte, string, error) {
	routes, err := s.Routes.Top(ctx, limit, station)
	if err != nil {
		return nil, "", err
	}
	utils.LogEvent(utils.RequestID(ctx, s.RequestID), "report", "top_routes_pdf", fmt.Sprintf("limit=%d rows=%d", limit, len(routes)))
	return buildTopRoutesPDF(routes, station, s.now())
}

func buildTopRoutesPDF(routes []domain.AggregateRoute, station string, at time.Time) ([]byte, string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Most used routes", false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "MOST USED ROUTES")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Generated : "+at.Format("2006-01-02 15:04"))
	pdf.Ln(6)
	if station != "" {
		pdf.Cell(0, 6, "Station   : "+station)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	widths := []float64{12, 74, 74, 30}
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range []string{"#", "From", "To", "Trips"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	for i, rt := range routes {
		pdf.CellFormat(widths[0], 6, strconv.Itoa(i+1), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(clip(rt.StartStationName, 44)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, tr(clip(rt.EndStationName, 44)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, strconv.FormatInt(rt.NumTrips, 10), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	if len(routes) == 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "No routes aggregated yet.", "", "", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("MOST_USED_ROUTES_%s.pdf", at.Format("20060102_1504"))
	return buf.Bytes(), filename, nil
}

func clip(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "~"
}
