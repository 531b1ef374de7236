package libretranslate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"multfilm/searchbot/internal/domain"
)

func TestTranslateSendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body translateRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if body.Q != "Shrek" || body.Source != "en" || body.Target != "ru" || body.Format != "text" {
			t.Errorf("unexpected body %+v", body)
		}
		if body.APIKey != "secret" {
			t.Errorf("expected api key, got %q", body.APIKey)
		}
		_, _ = w.Write([]byte(`{"translatedText":"Шрек"}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, APIKey: " secret ", Client: server.Client()})
	got, err := provider.Translate(context.Background(), "Shrek", domain.LanguageEnglish, domain.LanguageRussian)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Шрек" {
		t.Fatalf("expected Шрек, got %q", got)
	}
}

func TestTranslateReportsAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":"Visit the portal to get an API key"}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
	if _, err := provider.Translate(context.Background(), "Shrek", domain.LanguageEnglish, domain.LanguageRussian); err == nil {
		t.Fatal("expected error")
	}
}

func TestSupportsSkipsUzbek(t *testing.T) {
	provider := NewProvider(Config{Endpoint: "https://libretranslate.de/translate"})
	if provider.Name() != "libretranslate:libretranslate.de" {
		t.Fatalf("unexpected name %q", provider.Name())
	}
	if provider.Supports(domain.LanguageUzbek, domain.LanguageRussian) {
		t.Fatal("uzbek must be unsupported")
	}
	if !provider.Supports(domain.LanguageEnglish, domain.LanguageRussian) {
		t.Fatal("expected en->ru support")
	}
}
