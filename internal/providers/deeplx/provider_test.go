package deeplx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"multfilm/searchbot/internal/domain"
	"multfilm/searchbot/internal/translate"
)

func TestTranslateSendsDeepLXRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("User-Agent"); got != "test-agent" {
			t.Errorf("unexpected user agent %q", got)
		}
		var body translateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Text != "Холодное сердце" || body.SourceLang != "RU" || body.TargetLang != "EN" {
			t.Errorf("unexpected body %+v", body)
		}
		_, _ = w.Write([]byte(`{"code":200,"data":"Frozen"}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, UserAgent: "test-agent", Client: server.Client()})
	got, err := provider.Translate(context.Background(), "Холодное сердце", domain.LanguageRussian, domain.LanguageEnglish)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Frozen" {
		t.Fatalf("expected Frozen, got %q", got)
	}
}

func TestTranslateErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"http status": {status: http.StatusTooManyRequests, body: `{"message":"slow down"}`},
		"api code":    {status: http.StatusOK, body: `{"code":429,"data":""}`},
		"empty data":  {status: http.StatusOK, body: `{"code":200,"data":"  "}`},
		"bad json":    {status: http.StatusOK, body: `<html>`},
	}
	for name, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		provider := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
		_, err := provider.Translate(context.Background(), "Shrek", domain.LanguageEnglish, domain.LanguageRussian)
		server.Close()
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		if name == "empty data" && !errors.Is(err, translate.ErrEmptyResponse) {
			t.Fatalf("%s: expected ErrEmptyResponse, got %v", name, err)
		}
	}
}

func TestProviderDefaults(t *testing.T) {
	provider := NewProvider(Config{Endpoint: "https://api.deeplx.org/translate"})
	if provider.Name() != "deeplx:api.deeplx.org" {
		t.Fatalf("unexpected name %q", provider.Name())
	}
	if provider.Timeout() != defaultTimeout {
		t.Fatalf("unexpected timeout %v", provider.Timeout())
	}
	if provider.Supports(domain.LanguageUzbek, domain.LanguageEnglish) || provider.Supports(domain.LanguageRussian, domain.LanguageUzbek) {
		t.Fatal("deeplx has no uzbek support")
	}
	if !provider.Supports(domain.LanguageRussian, domain.LanguageEnglish) {
		t.Fatal("expected ru->en support")
	}
	if NewProvider(Config{}).Supports(domain.LanguageRussian, domain.LanguageEnglish) {
		t.Fatal("provider without endpoint must not be eligible")
	}
}
