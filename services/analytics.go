package services

import (
	"fmt"
	"math"
	"time"

	"github.com/yeremiapane/reservation-app/models"
)

// PredictionTolerance is the largest gap between predicted and actual
// duration still counted as an accurate prediction.
const PredictionTolerance = 7 * time.Minute

type TopPayer struct {
	ReservationID string  `json:"reservation_id"`
	CustomerName  string  `json:"customer_name"`
	CustomerEmail string  `json:"customer_email"`
	PricePaid     float64 `json:"price_paid"`
}

type AnalyticsSummary struct {
	Total              int                              `json:"total"`
	ByStatus           map[models.ReservationStatus]int `json:"by_status"`
	Successful         int                              `json:"successful"`
	Unsuccessful       int                              `json:"unsuccessful"`
	Revenue            float64                          `json:"revenue"`
	AverageGuests      float64                          `json:"average_guests"`
	TopPayer           *TopPayer                        `json:"top_payer"`
	PredictionAccuracy *float64                         `json:"prediction_accuracy"`
	AccuracyLabel      string                           `json:"prediction_accuracy_label"`
	AccuracySample     int                              `json:"prediction_sample"`
	HourlyOccupancy    [24]int                          `json:"hourly_occupancy"`
	PeakHour           *int                             `json:"peak_hour"`
}

// Summarize aggregates an already scoped set of reservations. Start hours
// are read in loc.
func Summarize(reservations []models.Reservation, loc *time.Location) AnalyticsSummary {
	if loc == nil {
		loc = time.UTC
	}
	summary := AnalyticsSummary{
		Total:    len(reservations),
		ByStatus: make(map[models.ReservationStatus]int),
	}

	totalGuests := 0
	accurate := 0
	var top *TopPayer

	for i := range reservations {
		r := &reservations[i]
		summary.ByStatus[r.Status]++

		if r.Status == models.StatusCompleted {
			if actual, ok := r.ActualDuration(); ok && !r.PredictedEndTime.IsZero() {
				summary.AccuracySample++
				if absDuration(r.PredictedDuration()-actual) <= PredictionTolerance {
					accurate++
				}
			}
		}

		switch {
		case r.Status.Successful():
			summary.Successful++
			price := pricePaid(r)
			summary.Revenue += price
			totalGuests += r.GuestCount
			summary.HourlyOccupancy[r.StartTime.In(loc).Hour()]++
			if top == nil || price > top.PricePaid {
				top = &TopPayer{
					ReservationID: r.ID,
					CustomerName:  r.CustomerName,
					CustomerEmail: r.CustomerEmail,
					PricePaid:     price,
				}
			}
		case r.Status.Unsuccessful():
			summary.Unsuccessful++
		}
	}

	summary.Revenue = math.Round(summary.Revenue*100) / 100
	if summary.Successful > 0 {
		summary.AverageGuests = float64(totalGuests) / float64(summary.Successful)
		summary.TopPayer = top
		summary.PeakHour = peakHour(summary.HourlyOccupancy)
	}

	summary.AccuracyLabel = "N/A"
	if summary.AccuracySample > 0 {
		pct := float64(accurate) / float64(summary.AccuracySample) * 100
		summary.PredictionAccuracy = &pct
		summary.AccuracyLabel = fmt.Sprintf("%.1f%%", pct)
	}
	return summary
}

func pricePaid(r *models.Reservation) float64 {
	if r.PricePaid == nil || math.IsNaN(*r.PricePaid) || math.IsInf(*r.PricePaid, 0) {
		return 0
	}
	return *r.PricePaid
}

// peakHour is the busiest hour, the earliest one on ties.
func peakHour(hist [24]int) *int {
	best := -1
	for hour, count := range hist {
		if count > 0 && (best < 0 || count > hist[best]) {
			best = hour
		}
	}
	if best < 0 {
		return nil
	}
	return &best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
