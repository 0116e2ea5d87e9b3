package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soberPathAPI/middleware"
)

// Requests without a Clerk ID on the context must be rejected before any
// service is touched, so nil services are safe here.
func TestHandlers_Unauthenticated(t *testing.T) {
	profileHandler := NewProfileHandler(nil, nil)
	logHandler := NewLogHandler(nil)
	taskHandler := NewTaskHandler(nil)
	achievementHandler := NewAchievementHandler(nil)
	levelHandler := NewLevelHandler(nil)
	notificationHandler := NewNotificationHandler(nil)

	cases := []struct {
		name    string
		method  string
		path    string
		handler http.HandlerFunc
	}{
		{"GetMe", http.MethodGet, "/api/v1/user", profileHandler.GetMe},
		{"GetProfile", http.MethodGet, "/api/v1/profile", profileHandler.GetProfile},
		{"GetSettings", http.MethodGet, "/api/v1/settings", profileHandler.GetSettings},
		{"GetStats", http.MethodGet, "/api/v1/stats", profileHandler.GetStats},
		{"GetLeaderboard", http.MethodGet, "/api/v1/leaderboard", profileHandler.GetLeaderboard},
		{"AddDrinkLog", http.MethodPost, "/api/v1/logs/drink", logHandler.AddDrinkLog},
		{"GetDrinkLogs", http.MethodGet, "/api/v1/logs/drink", logHandler.GetDrinkLogs},
		{"GetCalendar", http.MethodGet, "/api/v1/calendar", logHandler.GetCalendar},
		{"GetDaysStats", http.MethodGet, "/api/v1/stats/days", logHandler.GetDaysStats},
		{"GetDailyTasks", http.MethodGet, "/api/v1/tasks", taskHandler.GetDailyTasks},
		{"GetAchievements", http.MethodGet, "/api/v1/achievements", achievementHandler.GetAchievements},
		{"GetLevels", http.MethodGet, "/api/v1/levels", levelHandler.GetLevels},
		{"GetNotifications", http.MethodGet, "/api/v1/notifications", notificationHandler.GetNotifications},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rr := httptest.NewRecorder()

			tc.handler(rr, req)

			assert.Equal(t, http.StatusUnauthorized, rr.Code)

			var response map[string]string
			err := json.Unmarshal(rr.Body.Bytes(), &response)
			require.NoError(t, err)
			assert.Contains(t, response["error"], "not authenticated")
		})
	}
}

func TestCompleteTask_InvalidID(t *testing.T) {
	taskHandler := NewTaskHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/not-a-uuid/complete", nil)
	req = mux.SetURLVars(req, map[string]string{"id": "not-a-uuid"})
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "user_test_123")
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	taskHandler.CompleteTask(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAddDrinkLog_InvalidBody(t *testing.T) {
	logHandler := NewLogHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/logs/drink", bytes.NewBufferString("{not json"))
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "user_test_123")
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	logHandler.AddDrinkLog(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRegisterDevice_MissingToken(t *testing.T) {
	notificationHandler := NewNotificationHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/register-device", bytes.NewBufferString(`{"platform": "android"}`))
	ctx := context.WithValue(req.Context(), middleware.ClerkIDKey, "user_test_123")
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	notificationHandler.RegisterDevice(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestClerkWebhook_RejectsBadSignature(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_test_secret")

	webhookHandler := NewWebhookHandler(nil)

	body := []byte(`{"type": "user.created", "data": {"id": "user_123"}}`)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewBuffer(body))
	req.Header.Set("svix-id", "msg_test")
	req.Header.Set("svix-timestamp", "1693399999")
	req.Header.Set("svix-signature", "v1,definitely-not-valid")

	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClerkWebhook_MissingHeaders(t *testing.T) {
	t.Setenv("CLERK_WEBHOOK_SECRET", "whsec_test_secret")

	webhookHandler := NewWebhookHandler(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewBufferString(`{}`))
	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestClerkWebhook_UnhandledEventType(t *testing.T) {
	secret := "whsec_test_secret"
	t.Setenv("CLERK_WEBHOOK_SECRET", secret)

	webhookHandler := NewWebhookHandler(nil)

	body := []byte(`{"type": "session.created", "data": {}}`)
	svixID := "msg_test"
	svixTimestamp := "1693399999"

	signedContent := fmt.Sprintf("%s.%s.%s", svixID, svixTimestamp, string(body))
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signedContent))
	signature := "v1," + hex.EncodeToString(mac.Sum(nil))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewBuffer(body))
	req.Header.Set("svix-id", svixID)
	req.Header.Set("svix-timestamp", svixTimestamp)
	req.Header.Set("svix-signature", signature)

	rr := httptest.NewRecorder()
	webhookHandler.HandleClerkWebhook(rr, req)

	// Unknown event types are acknowledged, not failed, so Clerk doesn't
	// retry them forever.
	assert.Equal(t, http.StatusOK, rr.Code)
}
