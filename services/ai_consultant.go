package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/yeremiapane/reservation-app/utils"
)

var ErrDecisionServiceUnavailable = errors.New("booking decision service unavailable")

type VerdictAction string

const (
	VerdictAccept VerdictAction = "accept"
	VerdictDeny   VerdictAction = "deny"
)

// ParseVerdictAction maps the decision service's vocabulary onto the two
// internal actions.
func ParseVerdictAction(action string) (VerdictAction, bool) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "accept", "accepted", "confirm", "confirmed":
		return VerdictAccept, true
	case "deny", "denied", "reject", "rejected":
		return VerdictDeny, true
	default:
		return "", false
	}
}

type BookingRequest struct {
	RestaurantID  string
	CustomerEmail string
	GuestCount    int
	// StartTime is in the restaurant's timezone.
	StartTime time.Time
}

type Verdict struct {
	Action            VerdictAction
	TableID           string
	PredictedDuration float64 // minutes
	AssignedCapacity  int
	Confidence        *float64
	Reason            string
}

// DurationOr returns the predicted duration rounded to whole minutes, or
// fallback when the service sent none.
func (v Verdict) DurationOr(fallback time.Duration) time.Duration {
	minutes := math.Round(v.PredictedDuration)
	if minutes <= 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return fallback
	}
	return time.Duration(minutes) * time.Minute
}

type Consultant interface {
	Consult(ctx context.Context, req BookingRequest) (Verdict, error)
}

// AIConsultant talks to the external booking decision service over HTTP.
type AIConsultant struct {
	baseURL    string
	httpClient *http.Client
	monitor    *AIHealthMonitor
}

func NewAIConsultant(baseURL string, timeout time.Duration) *AIConsultant {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AIConsultant{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// WithMonitor makes Consult fail fast while the last health probe failed.
func (c *AIConsultant) WithMonitor(m *AIHealthMonitor) *AIConsultant {
	c.monitor = m
	return c
}

type decisionResponse struct {
	Action            string          `json:"action"`
	TableID           json.RawMessage `json:"table_id"`
	PredictedDuration json.RawMessage `json:"predicted_duration"`
	AssignedCapacity  int             `json:"assigned_capacity"`
	Confidence        *float64        `json:"ai_confidence_score"`
	Reason            string          `json:"reason"`
}

func (c *AIConsultant) Consult(ctx context.Context, req BookingRequest) (Verdict, error) {
	if c.baseURL == "" {
		return Verdict{}, fmt.Errorf("%w: no service url configured", ErrDecisionServiceUnavailable)
	}
	if c.monitor != nil && !c.monitor.Healthy() {
		return Verdict{}, fmt.Errorf("%w: last health check failed", ErrDecisionServiceUnavailable)
	}

	weekday := req.StartTime.Weekday()
	payload := map[string]interface{}{
		"restaurant_id":  req.RestaurantID,
		"customer_email": req.CustomerEmail,
		"guest_count":    req.GuestCount,
		"party_size":     req.GuestCount,
		"start_time":     req.StartTime.Format(time.RFC3339),
		"day_of_week":    weekday.String(),
		"time":           req.StartTime.Format("15:04"),
		"is_weekend":     weekday == time.Saturday || weekday == time.Sunday,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return Verdict{}, fmt.Errorf("error marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/decide_booking", bytes.NewBuffer(jsonData))
	if err != nil {
		return Verdict{}, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %v", ErrDecisionServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: reading response: %v", ErrDecisionServiceUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		utils.ErrorLogger.Warnf("Decision service returned %d: %s", resp.StatusCode, string(body))
		return Verdict{}, fmt.Errorf("%w: status %d", ErrDecisionServiceUnavailable, resp.StatusCode)
	}

	var decision decisionResponse
	if err := json.Unmarshal(body, &decision); err != nil {
		return Verdict{}, fmt.Errorf("%w: decoding response: %v", ErrDecisionServiceUnavailable, err)
	}
	return decision.verdict()
}

func (d decisionResponse) verdict() (Verdict, error) {
	action, ok := ParseVerdictAction(d.Action)
	if !ok {
		return Verdict{}, fmt.Errorf("%w: unrecognised action %q", ErrDecisionServiceUnavailable, d.Action)
	}

	duration, _ := strconv.ParseFloat(looseScalar(d.PredictedDuration), 64)
	return Verdict{
		Action:            action,
		TableID:           looseScalar(d.TableID),
		PredictedDuration: duration,
		AssignedCapacity:  d.AssignedCapacity,
		Confidence:        d.Confidence,
		Reason:            strings.TrimSpace(d.Reason),
	}, nil
}

// looseScalar reads a JSON string or number as text; anything else is "".
func looseScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return ""
	}
	return n.String()
}

// Probe calls the service's health endpoint.
func (c *AIConsultant) Probe(ctx context.Context) error {
	if c.baseURL == "" {
		return fmt.Errorf("%w: no service url configured", ErrDecisionServiceUnavailable)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}
