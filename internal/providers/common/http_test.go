package common

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestProviderName(t *testing.T) {
	cases := map[string]string{
		"https://api.deeplx.org/translate": "deeplx:api.deeplx.org",
		"http://LOCALHOST:1188/translate":  "deeplx:localhost:1188",
		"":                                 "deeplx",
		"not a url":                        "deeplx",
	}
	for endpoint, want := range cases {
		if got := ProviderName("deeplx", endpoint); got != want {
			t.Fatalf("ProviderName(%q) = %q, want %q", endpoint, got, want)
		}
	}
}

func TestDoJSONReportsStatusAndBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer server.Close()

	req, err := NewGetRequest(context.Background(), server.URL, nil, "")
	if err != nil {
		t.Fatalf("NewGetRequest: %v", err)
	}
	var out map[string]any
	err = DoJSON(server.Client(), req, "upstream", &out)
	if err == nil || !strings.Contains(err.Error(), "upstream HTTP 403: quota exceeded") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestNewGetRequestAppendsParams(t *testing.T) {
	req, err := NewGetRequest(context.Background(), "https://example.com/get?client=gtx", map[string][]string{"q": {"Шрек"}}, "agent/2")
	if err != nil {
		t.Fatalf("NewGetRequest: %v", err)
	}
	if req.URL.Query().Get("client") != "gtx" || req.URL.Query().Get("q") != "Шрек" {
		t.Fatalf("unexpected url %s", req.URL)
	}
	if req.Header.Get("User-Agent") != "agent/2" {
		t.Fatalf("unexpected user agent %q", req.Header.Get("User-Agent"))
	}
	if UserAgent(" ") != DefaultUserAgent {
		t.Fatal("blank user agent must fall back to the default")
	}
}
