package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"lingocast/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSource(t *testing.T) {
	var gotAgent, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	result := CheckSource(context.Background(), srv.URL+"/", "lingocast/test", time.Second)
	if !result.Passed {
		t.Fatalf("expected 404 to count as reachable, got: %s", result.Detail)
	}
	if gotAgent != "lingocast/test" || gotPath != sourceProbePath {
		t.Fatalf("unexpected probe request agent=%q path=%q", gotAgent, gotPath)
	}
	if !strings.HasPrefix(result.Name, "Source http://") {
		t.Fatalf("unexpected name %q", result.Name)
	}
}

func TestCheckSource_PipedPrefix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckSource(context.Background(), "piped+"+srv.URL, "", time.Second)
	if !result.Passed || result.Name != "Source "+srv.URL {
		t.Fatalf("expected prefix stripped before probing, got %+v", result)
	}
}

func TestCheckSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	result := CheckSource(context.Background(), srv.URL, "", time.Second)
	if result.Passed || !strings.Contains(result.Detail, "502") {
		t.Fatalf("expected unhealthy result, got %+v", result)
	}
}

func TestCheckSource_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if result := CheckSource(context.Background(), url, "", time.Second); result.Passed {
		t.Fatal("expected failure for closed server")
	}
	if result := CheckSource(context.Background(), " ", "", time.Second); result.Passed {
		t.Fatal("expected failure for empty endpoint")
	}
}

func TestCheckLLM(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"ok\":true}"}}]}`))
	}))
	defer srv.Close()

	ok := CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "good-key", BaseURL: srv.URL})
	if !ok.Passed {
		t.Fatalf("expected pass, got: %s", ok.Detail)
	}
	bad := CheckLLM(context.Background(), "LLM", config.LLMConfig{APIKey: "bad-key", BaseURL: srv.URL})
	if bad.Passed {
		t.Fatal("expected failure for bad key")
	}
	missing := CheckLLM(context.Background(), "LLM", config.LLMConfig{})
	if missing.Passed || missing.Detail != "API key missing" {
		t.Fatalf("unexpected missing-key result %+v", missing)
	}
}

func TestCheckLLMFromConfig_Disabled(t *testing.T) {
	cfg := config.Default()
	cfg.LLM.APIKey = ""
	result := CheckLLMFromConfig(context.Background(), &cfg)
	if !result.Passed || !strings.Contains(result.Detail, "Disabled") {
		t.Fatalf("expected disabled pass, got %+v", result)
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Paths.ScratchDir = t.TempDir()
	cfg.Sources.Instances = []string{srv.URL}
	cfg.LLM.APIKey = ""

	results := RunAll(context.Background(), &cfg)
	// cache + scratch + one source
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if failed := Failed(results); len(failed) != 0 {
		t.Fatalf("unexpected failures: %+v", failed)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := config.Default()
	cfg.Extractor.Enabled = false
	if statuses := CheckSystemDeps(context.Background(), &cfg); len(statuses) != 0 {
		t.Fatalf("expected no checks with extractor disabled, got %+v", statuses)
	}
	cfg.Extractor.Enabled = true
	cfg.Extractor.Binary = "clearly-not-present-yt-dlp"
	statuses := CheckSystemDeps(context.Background(), &cfg)
	if len(statuses) != 1 || statuses[0].Available {
		t.Fatalf("expected one unavailable extractor status, got %+v", statuses)
	}
}
