package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "kharcha/internal/errors"
	"kharcha/internal/services"
)

func setupSMSRouter(handler *SMSHandler) *gin.Engine {
	r := gin.New()
	r.POST("/sms/refresh", injectUserID(testUserID), handler.Refresh)
	return r
}

func TestSMSHandler_Refresh(t *testing.T) {
	t.Run("returns 200 with ingestion summary", func(t *testing.T) {
		var gotMessages int
		ingestionSvc := &mockIngestionService{
			refreshFn: func(ctx context.Context, userID string, source services.SMSSource) (*services.IngestResult, error) {
				msgs, err := source.Messages(ctx)
				if err != nil {
					t.Fatalf("source read failed: %v", err)
				}
				gotMessages = len(msgs)
				return &services.IngestResult{Imported: 2, Duplicates: 1, Skipped: 1}, nil
			},
		}
		r := setupSMSRouter(NewSMSHandler(ingestionSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/sms/refresh", `{"messages":[
			{"body":"Your A/c XX1234 debited by Rs.1,500.00 at Amazon","received_at":"2024-03-07T19:57:24Z"},
			{"body":"Spent Rs.249.00 on HDFC Card XX7712 at Netflix","received_at":"2024-03-08T09:00:00Z"},
			{"body":"Your OTP is 443210","received_at":"2024-03-08T10:00:00Z"},
			{"body":"Your A/c XX1234 debited by Rs.1,500.00 at Amazon","received_at":"2024-03-07T19:57:24Z"}
		]}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotMessages != 4 {
			t.Errorf("expected 4 messages passed through, got %d", gotMessages)
		}
		result := parseJSON(t, rec)
		if result["imported"] != float64(2) {
			t.Errorf("expected 2 imported, got %v", result["imported"])
		}
		if result["duplicates"] != float64(1) {
			t.Errorf("expected 1 duplicate, got %v", result["duplicates"])
		}
	})

	t.Run("returns 400 on missing messages", func(t *testing.T) {
		r := setupSMSRouter(NewSMSHandler(&mockIngestionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/sms/refresh", `{}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 400 on message without body", func(t *testing.T) {
		r := setupSMSRouter(NewSMSHandler(&mockIngestionService{}, &mockAuditService{}))

		rec := doRequest(r, "POST", "/sms/refresh", `{"messages":[{"received_at":"2024-03-07T19:57:24Z"}]}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when source is unavailable", func(t *testing.T) {
		ingestionSvc := &mockIngestionService{
			refreshFn: func(_ context.Context, _ string, _ services.SMSSource) (*services.IngestResult, error) {
				return nil, apperrors.ErrSMSSourceUnavailable
			},
		}
		r := setupSMSRouter(NewSMSHandler(ingestionSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/sms/refresh", `{"messages":[{"body":"x","received_at":"2024-03-07T19:57:24Z"}]}`)

		if rec.Code != http.StatusBadGateway {
			t.Fatalf("expected 502, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "SMS_SOURCE_UNAVAILABLE")
	})

	t.Run("returns 408 when the request is cancelled mid-run", func(t *testing.T) {
		ingestionSvc := &mockIngestionService{
			refreshFn: func(_ context.Context, _ string, _ services.SMSSource) (*services.IngestResult, error) {
				return &services.IngestResult{Imported: 1}, context.Canceled
			},
		}
		r := setupSMSRouter(NewSMSHandler(ingestionSvc, &mockAuditService{}))

		rec := doRequest(r, "POST", "/sms/refresh", `{"messages":[{"body":"x","received_at":"2024-03-07T19:57:24Z"}]}`)

		if rec.Code != http.StatusRequestTimeout {
			t.Fatalf("expected 408, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "REQUEST_CANCELLED")
	})

	t.Run("returns 401 without auth", func(t *testing.T) {
		handler := NewSMSHandler(&mockIngestionService{}, &mockAuditService{})
		r := gin.New()
		r.POST("/sms/refresh", handler.Refresh)

		rec := doRequest(r, "POST", "/sms/refresh", `{"messages":[]}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}
