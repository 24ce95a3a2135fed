package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/reservation-app/config"
	"github.com/yeremiapane/reservation-app/database"
	"github.com/yeremiapane/reservation-app/hub"
	"github.com/yeremiapane/reservation-app/models"
	"github.com/yeremiapane/reservation-app/router"
	"github.com/yeremiapane/reservation-app/services"
	"github.com/yeremiapane/reservation-app/utils"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const weeklyHours = `{"default": {"open": "09:00", "close": "22:00"}, "sunday": null}`

type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []string
	denied  int
	tables  int
}

func (n *recordingNotifier) ReservationChanged(_ context.Context, routingKey string, _ *models.Reservation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, routingKey)
}

func (n *recordingNotifier) AdmissionDenied(context.Context, services.BookingRequest, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.denied++
}

func (n *recordingNotifier) TablesChanged(context.Context, string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tables++
}

type stubConsultant struct {
	verdict services.Verdict
	err     error
}

func (s *stubConsultant) Consult(context.Context, services.BookingRequest) (services.Verdict, error) {
	return s.verdict, s.err
}

type testApp struct {
	t          *testing.T
	db         *gorm.DB
	router     *gin.Engine
	notifier   *recordingNotifier
	consultant *stubConsultant
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared&_foreign_keys=on"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, config.Migrate(db))
	require.NoError(t, database.InstallCapacityGuard(db))

	cfg := config.Config{
		Env:                "test",
		DefaultTimezone:    "UTC",
		AdmissionMode:      models.AdmissionModeLocal,
		ReservationLength:  time.Hour,
		RateLimitPerSecond: 1000,
		RateLimitBurst:     1000,
		StrictRatePerMin:   1000,
	}

	app := &testApp{t: t, db: db, notifier: &recordingNotifier{}, consultant: &stubConsultant{}}
	store := services.NewReservationStore(db)
	engine := services.NewAdmissionEngine(store, app.consultant, app.notifier, services.AdmissionConfig{
		DefaultMode:       cfg.AdmissionMode,
		ReservationLength: cfg.ReservationLength,
		Location:          time.UTC,
	})
	app.router = router.SetupRouter(router.Dependencies{
		Config:   cfg,
		DB:       db,
		JWT:      utils.NewJWTManager("test-secret", time.Hour),
		Hub:      hub.New(),
		Store:    store,
		Engine:   engine,
		Notifier: app.notifier,
	})
	return app
}

func (a *testApp) do(method, path string, body interface{}, token string, headers ...string) *httptest.ResponseRecorder {
	a.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) envelope {
	t.Helper()
	env := decode(t, w)
	require.NoError(t, json.Unmarshal(env.Data, out), string(env.Data))
	return env
}

type owner struct {
	token        string
	restaurantID string
}

// signUp registers an owner with a restaurant and logs in.
func (a *testApp) signUp(email, restaurantName string) owner {
	a.t.Helper()
	w := a.do(http.MethodPost, "/register", `{
		"email": "`+email+`",
		"password": "secret123",
		"confirm_password": "secret123",
		"restaurant_name": "`+restaurantName+`",
		"operating_hours": `+weeklyHours+`
	}`, "")
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())

	w = a.do(http.MethodPost, "/login", gin.H{"email": email, "password": "secret123"}, "")
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())

	var data struct {
		Token        string `json:"token"`
		RestaurantID string `json:"restaurant_id"`
	}
	decodeData(a.t, w, &data)
	return owner{token: data.Token, restaurantID: data.RestaurantID}
}

func (a *testApp) createTable(o owner, room, name string, capacity int) models.Table {
	a.t.Helper()
	w := a.do(http.MethodPost, "/api/tables", gin.H{"room_name": room, "table_name": name, "capacity": capacity}, o.token)
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var table models.Table
	decodeData(a.t, w, &table)
	return table
}

// fridayEvening falls inside weeklyHours.
const fridayEvening = "2026-03-06T19:00"

func booking(tableID string, guests interface{}) gin.H {
	return gin.H{
		"table_id":       tableID,
		"customer_name":  "Ada Lovelace",
		"customer_email": "ada@example.com",
		"guest_count":    guests,
		"start_time":     fridayEvening,
	}
}
