package mymemory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"multfilm/searchbot/internal/domain"
)

func TestTranslateBuildsLangPair(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("q") != "Muzlagan yurak" || query.Get("langpair") != "uz|en" {
			t.Errorf("unexpected query %v", query)
		}
		if query.Get("de") != "bot@example.com" {
			t.Errorf("expected contact email, got %q", query.Get("de"))
		}
		_, _ = w.Write([]byte(`{"responseData":{"translatedText":"Frozen heart"},"responseStatus":200}`))
	}))
	defer server.Close()

	provider := NewProvider(Config{Endpoint: server.URL, Email: "bot@example.com", Client: server.Client()})
	got, err := provider.Translate(context.Background(), "Muzlagan yurak", domain.LanguageUzbek, domain.LanguageEnglish)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Frozen heart" {
		t.Fatalf("unexpected translation %q", got)
	}
}

func TestTranslateRejectsQuotaWarningAndBadStatus(t *testing.T) {
	bodies := []string{
		`{"responseData":{"translatedText":"MYMEMORY WARNING: YOU USED ALL AVAILABLE FREE TRANSLATIONS FOR TODAY"},"responseStatus":200}`,
		`{"responseData":{"translatedText":""},"responseStatus":"403","responseDetails":"INVALID LANGUAGE PAIR"}`,
		`{"responseData":{"translatedText":""},"responseStatus":200}`,
	}
	for _, body := range bodies {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		provider := NewProvider(Config{Endpoint: server.URL, Client: server.Client()})
		_, err := provider.Translate(context.Background(), "Shrek", domain.LanguageEnglish, domain.LanguageRussian)
		server.Close()
		if err == nil {
			t.Fatalf("expected error for %s", body)
		}
	}
}

func TestProviderDefaults(t *testing.T) {
	provider := NewProvider(Config{})
	if provider.endpoint != DefaultEndpoint {
		t.Fatalf("unexpected endpoint %q", provider.endpoint)
	}
	if !provider.Supports(domain.LanguageUzbek, domain.LanguageRussian) {
		t.Fatal("mymemory should support uzbek")
	}
}
