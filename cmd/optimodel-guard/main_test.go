package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lytix-labs/optimodel/guard"
	"github.com/lytix-labs/optimodel/internal/guards"
)

func TestGuardRoute(t *testing.T) {
	router := newRouter(guards.New("", ""))

	body := `{
		"guard": {"guardName": "LYTIX_REGEX_GUARD", "guardType": "preQuery", "regex": "ssn"},
		"messages": [{"role": "user", "content": "my ssn is hidden"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/optimodel-guard/api/v1/guard", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var result guard.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Failure {
		t.Errorf("result = %+v", result)
	}
}

func TestGuardRouteRejectsInvalidConfig(t *testing.T) {
	router := newRouter(guards.New("", ""))

	body := `{"guard": {"guardName": "LYTIX_REGEX_GUARD", "guardType": "preQuery"}, "messages": []}`
	req := httptest.NewRequest(http.MethodPost, "/optimodel-guard/api/v1/guard", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestGuardHealthRoute(t *testing.T) {
	router := newRouter(guards.New("", ""))

	req := httptest.NewRequest(http.MethodGet, "/optimodel-guard/api/v1/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}
