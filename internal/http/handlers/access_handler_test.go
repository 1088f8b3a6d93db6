package handlers

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xcro-market/backend/internal/config"
	"github.com/xcro-market/backend/internal/models"
	"github.com/xcro-market/backend/internal/repositories"
	"github.com/xcro-market/backend/internal/services"
)

type memRequests struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.AccessRequest
}

func (m *memRequests) Create(_ context.Context, a *models.AccessRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	c := *a
	m.byID[a.ID] = &c
	return nil
}

func (m *memRequests) GetByID(_ context.Context, id uuid.UUID) (*models.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	c := *r
	return &c, nil
}

func (m *memRequests) GetByCode(_ context.Context, code string) (*models.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.Code != nil && *r.Code == code {
			c := *r
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memRequests) PendingForUser(_ context.Context, userID int64, typ string) (*models.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.TelegramUserID == userID && r.RequestType == typ && r.Status == models.AccessRequestPending {
			c := *r
			return &c, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (m *memRequests) ListByStatus(_ context.Context, status string) ([]models.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AccessRequest{}
	for _, r := range m.byID {
		if r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memRequests) Decide(_ context.Context, id uuid.UUID, status string, code *string, now time.Time) (*models.AccessRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.byID[id]
	if !ok || r.Status != models.AccessRequestPending {
		return nil, repositories.ErrStale
	}
	r.Status, r.Code, r.DecidedAt = status, code, &now
	c := *r
	return &c, nil
}

func (m *memRequests) Redeem(_ context.Context, code string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.byID {
		if r.Code != nil && *r.Code == code && r.Status == models.AccessRequestApproved && r.RedeemedAt == nil {
			r.RedeemedAt = &now
			return nil
		}
	}
	return repositories.ErrStale
}

type nopNotifier struct{}

func (nopNotifier) SendMessage(context.Context, int64, string) error { return nil }

func newAccessApp(t *testing.T) *fiber.App {
	t.Helper()
	log := zap.NewNop()
	svc := services.NewAccessService(&memRequests{byID: map[uuid.UUID]*models.AccessRequest{}}, nil, nopNotifier{}, 0, log)
	h := NewAccessHandler(svc, &config.Config{InitDataMaxAge: time.Minute}, log)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(log)})
	app.Post("/request-code", h.RequestCode)
	app.Post("/approve-request", h.Approve)
	app.Get("/check-code/:code", h.CheckCode)
	app.Post("/redeem-code/:code", h.RedeemCode)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func TestAccessHandlerCodeLifecycle(t *testing.T) {
	app := newAccessApp(t)

	status, body := call(t, app, "GET", "/check-code/NOPE1234", "")
	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, false, body["valid"])

	status, body = call(t, app, "POST", "/request-code", `{"userId": 42, "username": "@ghost", "type": "seller"}`)
	require.Equal(t, fiber.StatusCreated, status)
	requestID, _ := body["requestId"].(string)
	require.NotEmpty(t, requestID)
	assert.Equal(t, models.AccessRequestPending, body["status"])

	status, body = call(t, app, "POST", "/approve-request", `{"requestId": "`+requestID+`"}`)
	require.Equal(t, fiber.StatusOK, status)
	code, _ := body["code"].(string)
	require.Len(t, code, 8)
	assert.Equal(t, "seller", body["type"])

	status, _ = call(t, app, "POST", "/approve-request", `{"requestId": "`+requestID+`"}`)
	assert.Equal(t, fiber.StatusConflict, status, "a decided request cannot be approved twice")

	status, body = call(t, app, "GET", "/check-code/"+code, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["valid"])
	assert.Equal(t, "seller", body["type"])

	status, _ = call(t, app, "POST", "/redeem-code/"+code, "")
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = call(t, app, "POST", "/redeem-code/"+code, "")
	assert.Equal(t, fiber.StatusConflict, status)
	status, _ = call(t, app, "POST", "/redeem-code/UNKNOWN1", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAccessHandlerRequestValidation(t *testing.T) {
	app := newAccessApp(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing user", `{"type": "buyer"}`, fiber.StatusBadRequest},
		{"bad type", `{"userId": 1, "type": "admin"}`, fiber.StatusBadRequest},
		{"malformed json", `{`, fiber.StatusBadRequest},
		{"forged init data", `{"type": "buyer", "init_data": "user=%7B%7D&hash=00"}`, fiber.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := call(t, app, "POST", "/request-code", tt.body)
			assert.Equal(t, tt.want, status)
		})
	}
}

func TestAccessHandlerApproveUnknown(t *testing.T) {
	app := newAccessApp(t)

	status, _ := call(t, app, "POST", "/approve-request", `{"requestId": "`+uuid.NewString()+`"}`)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = call(t, app, "POST", "/approve-request", `{"requestId": "nope"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}
