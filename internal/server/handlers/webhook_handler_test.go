package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/bakery/internal/domain/models"
)

type fakeMessaging struct {
	handled  int
	sent     []models.OutboundMessageRequest
	webhook  error
	outbound error
}

func (f *fakeMessaging) VerifyWebhookToken(mode, token, challenge string) (string, error) {
	if mode != "subscribe" || token != "secret" {
		return "", errors.New("invalid verify token")
	}
	return challenge, nil
}

func (f *fakeMessaging) HandleWebhook(context.Context, models.WebhookPayload) error {
	f.handled++
	return f.webhook
}

func (f *fakeMessaging) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	f.sent = append(f.sent, req)
	return f.outbound
}

func webhookEngine(svc *fakeMessaging) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewWebhookHandler(svc, nil)
	r := gin.New()
	r.GET("/webhook", h.Verify)
	r.POST("/webhook", h.Receive)
	r.POST("/send-message", h.SendMessage)
	return r
}

func serve(r *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestWebhookHandler_Verify(t *testing.T) {
	r := webhookEngine(&fakeMessaging{})

	rec := serve(r, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=secret&hub.challenge=123", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "123", rec.Body.String())

	rec = serve(r, http.MethodGet, "/webhook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=123", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookHandler_Receive(t *testing.T) {
	const payload = `{"object":"whatsapp_business_account","entry":[]}`

	tests := []struct {
		name    string
		body    string
		err     error
		status  int
		handled int
	}{
		{"ok", payload, nil, http.StatusOK, 1},
		{"store outage asks for redelivery", payload, models.Unavailable("snapshot", errors.New("timeout")), http.StatusServiceUnavailable, 1},
		{"reply failure", payload, errors.New("whatsapp api error"), http.StatusBadGateway, 1},
		{"other object ignored", `{"object":"page"}`, nil, http.StatusOK, 0},
		{"malformed", `{`, nil, http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeMessaging{webhook: tt.err}
			rec := serve(webhookEngine(svc), http.MethodPost, "/webhook", tt.body)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.handled, svc.handled)
		})
	}
}

func TestWebhookHandler_SendMessage(t *testing.T) {
	svc := &fakeMessaging{}
	r := webhookEngine(svc)

	rec := serve(r, http.MethodPost, "/send-message", `{"to":"221","message":"hi"}`)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, svc.sent, 1)

	rec = serve(r, http.MethodPost, "/send-message", `{"to":"221"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.outbound = errors.New("down")
	rec = serve(r, http.MethodPost, "/send-message", `{"to":"221","message":"hi"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
