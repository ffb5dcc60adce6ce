package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lytix-labs/optimodel"
	"github.com/lytix-labs/optimodel/models"
	"github.com/lytix-labs/optimodel/providers"
)

type stubAdapter struct {
	id   providers.ID
	resp *providers.QueryResponse
	err  error
}

func (s *stubAdapter) ID() providers.ID               { return s.id }
func (s *stubAdapter) Validate(context.Context) error { return nil }
func (s *stubAdapter) SupportsSAAS() bool             { return true }
func (s *stubAdapter) SupportsJSONMode() bool         { return true }
func (s *stubAdapter) SupportsImages() bool           { return true }

func (s *stubAdapter) MakeQuery(context.Context, providers.QueryParams) (*providers.QueryResponse, error) {
	return s.resp, s.err
}

func testRouter(adapter *stubAdapter) (http.Handler, *models.Catalog) {
	in, out := 2.5, 10.0
	catalog := models.NewCatalog(map[string][]models.ProviderEntry{
		"gpt_4o": {{
			LogicalModel:     "gpt_4o",
			Provider:         providers.ProviderOpenAI,
			MaxGenLen:        1024,
			SpeedRank:        1,
			PricePer1MInput:  &in,
			PricePer1MOutput: &out,
			SupportsSAAS:     true,
			SupportsJSONMode: true,
		}},
	})
	reg := providers.NewEmptyRegistry()
	reg.Register(adapter)
	pipeline := optimodel.New(optimodel.Config{Catalog: catalog, Registry: reg})
	return newRouter(pipeline, catalog), catalog
}

func TestQueryRoute(t *testing.T) {
	adapter := &stubAdapter{
		id:   providers.ProviderOpenAI,
		resp: &providers.QueryResponse{ModelOutput: "hello back", PromptTokens: 100, GenerationTokens: 10},
	}
	router, _ := testRouter(adapter)

	body := `{"messages": [{"role": "user", "content": "hello"}], "modelToUse": "gpt_4o"}`
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp optimodel.QueryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ModelResponse != "hello back" || resp.Provider != providers.ProviderOpenAI {
		t.Errorf("response = %+v", resp)
	}
	if resp.Cost == nil {
		t.Error("expected priced response")
	}
}

func TestQueryRouteMalformedBody(t *testing.T) {
	router, _ := testRouter(&stubAdapter{id: providers.ProviderOpenAI})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestQueryRouteValidationError(t *testing.T) {
	router, _ := testRouter(&stubAdapter{id: providers.ProviderOpenAI})

	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(`{"modelToUse": "gpt_4o"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestQueryRouteTerminalError(t *testing.T) {
	adapter := &stubAdapter{
		id:  providers.ProviderOpenAI,
		err: &providers.Failure{Provider: providers.ProviderOpenAI, Cause: errors.New("status 500")},
	}
	router, _ := testRouter(adapter)

	body := `{"messages": [{"role": "user", "content": "hello"}], "modelToUse": "gpt_4o"}`
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var errResp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp["error"] == "" {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestListModelsRoute(t *testing.T) {
	router, _ := testRouter(&stubAdapter{id: providers.ProviderOpenAI})

	req := httptest.NewRequest(http.MethodGet, "/list-models", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Models map[string][]listedModel `json:"models"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	entries := resp.Models["gpt_4o"]
	if len(entries) != 1 || entries[0].Provider != providers.ProviderOpenAI || entries[0].MaxGenLen != 1024 {
		t.Errorf("models = %+v", resp.Models)
	}
}

func TestHealthRoute(t *testing.T) {
	router, _ := testRouter(&stubAdapter{id: providers.ProviderOpenAI})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}
