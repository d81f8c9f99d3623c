package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

type recordedRequest struct {
	Host        string   `json:"host"`
	Key         string   `json:"key"`
	KeyLocation string   `json:"keyLocation"`
	URLList     []string `json:"urlList"`
}

type fakeEndpoint struct {
	mu       sync.Mutex
	status   int
	requests []recordedRequest
}

func (f *fakeEndpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req recordedRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	status := f.status
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (f *fakeEndpoint) calls() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

type env struct {
	endpoint *fakeEndpoint
	sitemap  string
	auditLog string
}

// setupEnv points every configurable path at a temp dir and the endpoint at a fake server
func setupEnv(t *testing.T, paths ...string) *env {
	t.Helper()
	dir := t.TempDir()

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?><urlset>`)
	for _, p := range paths {
		sb.WriteString("<url><loc>https://example.com" + p + "</loc></url>")
	}
	sb.WriteString("</urlset>")
	sitemap := filepath.Join(dir, "sitemap.xml")
	require.NoError(t, os.WriteFile(sitemap, []byte(sb.String()), 0644))

	fake := &fakeEndpoint{}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	t.Setenv("INDEXNOW_INDEXNOW_ENDPOINT", server.URL+"/indexnow")
	t.Setenv("INDEXNOW_INDEXNOW_KEY", testKey)
	t.Setenv("INDEXNOW_AUDIT_DIR", filepath.Join(dir, "logs"))
	t.Setenv("INDEXNOW_STORAGE_DATA_DIR", filepath.Join(dir, "data"))

	return &env{
		endpoint: fake,
		sitemap:  sitemap,
		auditLog: filepath.Join(dir, "logs", "indexnow-submissions.json"),
	}
}

func (e *env) opts() options {
	return options{domain: "example.com", sitemap: e.sitemap, logWriter: io.Discard}
}

func runCapture(t *testing.T, opts options) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(context.Background(), opts, &out)
	return code, out.String()
}

func auditLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestRun_SubmitsNewURLsOnly(t *testing.T) {
	e := setupEnv(t, "/", "/services", "/thank-you/", "/services/")

	code, out := runCapture(t, e.opts())
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "SUCCESS batch 1: status=200 urls=2")
	assert.Contains(t, out, "Success Rate: 100.0%")

	calls := e.endpoint.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "example.com", calls[0].Host)
	assert.Equal(t, testKey, calls[0].Key)
	assert.Equal(t, "https://example.com/"+testKey+".txt", calls[0].KeyLocation)
	assert.Equal(t, []string{"https://example.com/", "https://example.com/services/"}, calls[0].URLList)

	lines := auditLines(t, e.auditLog)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"deploymentId":"manual-`)

	code, out = runCapture(t, e.opts())
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "No URLs to submit")
	assert.Len(t, e.endpoint.calls(), 1)

	all := e.opts()
	all.submitAll = true
	all.deploymentID = "deploy-42"
	code, _ = runCapture(t, all)
	assert.Equal(t, 0, code)
	assert.Len(t, e.endpoint.calls(), 2)
	assert.Contains(t, auditLines(t, e.auditLog)[1], `"deploymentId":"deploy-42"`)
}

func TestRun_BatchesAndFailureExitCode(t *testing.T) {
	e := setupEnv(t, "/a/", "/b/", "/c/", "/d/", "/e/")
	e.endpoint.status = http.StatusForbidden

	opts := e.opts()
	opts.batchSize = 2
	code, out := runCapture(t, opts)

	assert.Equal(t, 1, code)
	assert.Len(t, e.endpoint.calls(), 3)
	assert.Contains(t, out, "FAILURE batch 1: status=403 urls=2")
	assert.Contains(t, out, "FAILURE batch 3: status=403 urls=1")
	assert.Contains(t, out, "Error: Forbidden: invalid API key")
	assert.NotContains(t, out, testKey)
	assert.Contains(t, out, "Batches: 3, Successful: 0, Failed: 3")
	assert.Len(t, auditLines(t, e.auditLog), 3)

	e.endpoint.status = http.StatusOK
	code, _ = runCapture(t, opts)
	assert.Equal(t, 0, code)
	assert.Len(t, e.endpoint.calls(), 6, "failed URLs are retried on the next run")
}

func TestRun_DryRun(t *testing.T) {
	e := setupEnv(t, "/", "/about/")

	opts := e.opts()
	opts.dryRun = true
	code, out := runCapture(t, opts)

	assert.Equal(t, 0, code)
	assert.Contains(t, out, "Dry Run: 2 URLs in 1 batches")
	assert.Contains(t, out, "https://example.com/about/")
	assert.Empty(t, e.endpoint.calls())
	assert.Nil(t, auditLines(t, e.auditLog))
}

func TestRun_URLFile(t *testing.T) {
	e := setupEnv(t)
	file := filepath.Join(t.TempDir(), "urls.txt")
	require.NoError(t, os.WriteFile(file, []byte("# changed pages\nhttps://example.com/blog\nhttps://other.com/\n"), 0644))

	opts := e.opts()
	opts.urlFile = file
	code, out := runCapture(t, opts)

	require.Equal(t, 0, code, out)
	calls := e.endpoint.calls()
	require.Len(t, calls, 1)
	assert.Equal(t, []string{"https://example.com/blog/"}, calls[0].URLList)
}

func TestRun_ConfigErrors(t *testing.T) {
	e := setupEnv(t, "/")

	opts := e.opts()
	opts.domain = ""
	code, out := runCapture(t, opts)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "domain is required")

	t.Setenv("INDEXNOW_INDEXNOW_KEY", "short")
	code, out = runCapture(t, e.opts())
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "8-128 hexadecimal")

	t.Setenv("INDEXNOW_INDEXNOW_KEY", testKey)
	missing := e.opts()
	missing.sitemap = filepath.Join(t.TempDir(), "absent.xml")
	code, out = runCapture(t, missing)
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "failed to read sitemap")

	assert.Empty(t, e.endpoint.calls())
}

func TestPrintUsage(t *testing.T) {
	var out bytes.Buffer
	printUsage(&out)
	for _, flagName := range []string{"-domain", "-file", "-all", "-dry-run", "-help"} {
		assert.Contains(t, out.String(), flagName)
	}
}
