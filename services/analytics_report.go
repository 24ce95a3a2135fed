package services

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/utils"
)

type AnalyticsReport struct {
	RestaurantName string
	From           *time.Time
	To             *time.Time
	GeneratedAt    time.Time
	Summary        AnalyticsSummary
}

// RenderOccupancyChart draws the hourly histogram as a PNG bar chart.
func RenderOccupancyChart(summary AnalyticsSummary) ([]byte, error) {
	bars := make([]chart.Value, 0, 24)
	for hour, count := range summary.HourlyOccupancy {
		bars = append(bars, chart.Value{Value: float64(count), Label: fmt.Sprintf("%02d", hour)})
	}

	graph := chart.BarChart{
		Title:      "Bookings by start hour",
		Height:     320,
		Width:      900,
		BarWidth:   24,
		BarSpacing: 8,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePDF renders the report. A chart that fails to draw is left out.
func (r AnalyticsReport) WritePDF(w io.Writer) error {
	s := r.Summary

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, fmt.Sprintf("%s - Reservation analytics", r.RestaurantName), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, periodLabel(r.From, r.To), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "Generated "+r.GeneratedAt.Format("2006-01-02 15:04 MST"), "", 1, "C", false, 0, "")

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, "Summary", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)

	rows := [][2]string{
		{"Total reservations", fmt.Sprintf("%d", s.Total)},
		{"Successful (confirmed + completed)", fmt.Sprintf("%d", s.Successful)},
		{"Unsuccessful (denied, rejected, cancelled)", fmt.Sprintf("%d", s.Unsuccessful)},
		{"Revenue", utils.FormatCurrency(s.Revenue)},
		{"Average guests", fmt.Sprintf("%.1f", s.AverageGuests)},
		{"Prediction accuracy", s.AccuracyLabel},
		{"Peak hour", peakLabel(s.PeakHour)},
	}
	if s.TopPayer != nil {
		rows = append(rows, [2]string{"Top payer", fmt.Sprintf("%s (%s)", s.TopPayer.CustomerName, utils.FormatCurrency(s.TopPayer.PricePaid))})
	}
	for _, row := range rows {
		pdf.CellFormat(95, 6, row[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, row[1], "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(0, 7, "By status", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	statuses := make([]string, 0, len(s.ByStatus))
	for status := range s.ByStatus {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		pdf.CellFormat(95, 6, status, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, fmt.Sprintf("%d", s.ByStatus[models.ReservationStatus(status)]), "", 1, "R", false, 0, "")
	}

	if s.Successful > 0 {
		png, err := RenderOccupancyChart(s)
		if err != nil {
			utils.ErrorLogger.Warnf("Skipping occupancy chart: %v", err)
		} else {
			pdf.Ln(4)
			pdf.SetFont("Arial", "B", 12)
			pdf.CellFormat(0, 7, "Peak occupancy", "B", 1, "L", false, 0, "")
			opts := fpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
			pdf.RegisterImageOptionsReader("occupancy", opts, bytes.NewReader(png))
			pdf.ImageOptions("occupancy", 15, pdf.GetY()+2, 180, 0, true, opts, 0, "")
		}
	}

	return pdf.Output(w)
}

func periodLabel(from, to *time.Time) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("Period %s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	case from != nil:
		return "From " + from.Format("2006-01-02")
	case to != nil:
		return "Until " + to.Format("2006-01-02")
	}
	return "All reservations"
}

func peakLabel(hour *int) string {
	if hour == nil {
		return "N/A"
	}
	return fmt.Sprintf("%02d:00 - %02d:59", *hour, *hour)
}
