package imgembed

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"
)

type testServer struct {
	app     *App
	logoPNG []byte
}

func newTestServer(t *testing.T, cfg Config, opts ...Option) *testServer {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "src")
	logo := makePNG(t, 6, 4)
	writeTree(t, root, map[string][]byte{
		"pratos/logo.png":     logo,
		"pratos/salada.jpg":   []byte("jpeg"),
		"bebidas/suco.webp":   []byte("webp"),
		"sobremesas/logo.png": []byte("other"),
	})
	cfg.OutputPath = filepath.Join(dir, "manifest.json")
	if _, _, err := Build(context.Background(), BuildOptions{SourceRoot: root, OutputPath: cfg.OutputPath}); err != nil {
		t.Fatalf("Build: %v", err)
	}
	app := New(cfg, opts...)
	t.Cleanup(func() { app.Close() })
	return &testServer{app: app, logoPNG: logo}
}

func (s *testServer) do(t *testing.T, method, target string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	s.app.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

func TestHandleImageServesDecodedBytes(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := s.do(t, http.MethodGet, "/images/pratos/logo.png", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !bytes.Equal(rec.Body.Bytes(), s.logoPNG) {
		t.Error("body differs from the source image")
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "public, max-age=2592000" {
		t.Errorf("Cache-Control = %q", cc)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	rec = s.do(t, http.MethodGet, "/images/pratos/logo.png", nil, http.Header{"If-None-Match": {etag}})
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional GET status = %d, want 304", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/images/pratos/logo.png", nil, http.Header{"If-None-Match": {`"stale", W/` + etag}})
	if rec.Code != http.StatusNotModified {
		t.Errorf("conditional GET with a weak tag list status = %d, want 304", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/images/pratos/@logo.png", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("@-prefixed filename status = %d", rec.Code)
	}
}

func TestHandleImageNotFound(t *testing.T) {
	s := newTestServer(t, Config{})

	for _, target := range []string{"/images/pratos/x.jpg", "/images/nope/logo.png"} {
		rec := s.do(t, http.MethodGet, target, nil, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", target, rec.Code)
		}
		var body map[string]string
		decodeBody(t, rec, &body)
		if body["error"] != "image not found" {
			t.Errorf("%s error = %q", target, body["error"])
		}
	}
}

func TestHandleListings(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := s.do(t, http.MethodGet, "/images", nil, nil)
	var all struct {
		Categories map[string][]imageInfo `json:"categories"`
	}
	decodeBody(t, rec, &all)
	if len(all.Categories) != 3 || len(all.Categories["pratos"]) != 2 {
		t.Errorf("GET /images = %+v", all)
	}

	rec = s.do(t, http.MethodGet, "/images/pratos", nil, nil)
	var one struct {
		Category string      `json:"category"`
		Images   []imageInfo `json:"images"`
	}
	decodeBody(t, rec, &one)
	if one.Category != "pratos" || len(one.Images) != 2 || one.Images[0].URL != "/images/pratos/logo.png" {
		t.Errorf("GET /images/pratos = %+v", one)
	}

	if rec := s.do(t, http.MethodGet, "/images/nope", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown category status = %d", rec.Code)
	}

	rec = s.do(t, http.MethodGet, "/images/preload/pratos", nil, nil)
	var preload struct {
		URLs  []string `json:"preload_urls"`
		Count int      `json:"count"`
	}
	decodeBody(t, rec, &preload)
	if preload.Count != 2 || len(preload.URLs) != 2 {
		t.Errorf("preload = %+v", preload)
	}

	rec = s.do(t, http.MethodGet, "/api/categories", nil, nil)
	var cats struct {
		Categories []string `json:"categories"`
	}
	decodeBody(t, rec, &cats)
	if strings.Join(cats.Categories, ",") != "bebidas,pratos,sobremesas" {
		t.Errorf("categories = %v", cats.Categories)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-store" {
		t.Errorf("api Cache-Control = %q", cc)
	}
}

func TestHandleEmptyCategory(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "manifest.json")
	if err := os.WriteFile(manifest, []byte(`{"vazia": {}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	app := New(Config{OutputPath: manifest})
	t.Cleanup(func() { app.Close() })
	s := &testServer{app: app}

	rec := s.do(t, http.MethodGet, "/images/vazia", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var one struct {
		Images []imageInfo `json:"images"`
	}
	decodeBody(t, rec, &one)
	if one.Images == nil || len(one.Images) != 0 {
		t.Errorf("images = %#v, want an empty list", one.Images)
	}

	rec = s.do(t, http.MethodGet, "/images/preload/vazia", nil, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("preload status = %d", rec.Code)
	}
}

func TestHandleFind(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := s.do(t, http.MethodGet, "/api/images/find/logo.png", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var found FoundImage
	decodeBody(t, rec, &found)
	if found.Category != "pratos" || found.MimeType != "image/png" {
		t.Errorf("found = %+v, want the pratos entry", found)
	}

	if rec := s.do(t, http.MethodGet, "/api/images/find/none.jpg", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("miss status = %d", rec.Code)
	}
}

func TestHandleValidate(t *testing.T) {
	s := newTestServer(t, Config{MaxUploadSize: 100})

	rec := s.do(t, http.MethodPost, "/api/validate-image", imageRequest{ImageBase64: EncodeDataURI("image/png", []byte("tiny"))}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var ok struct {
		Success bool  `json:"success"`
		Size    int64 `json:"size_bytes"`
	}
	decodeBody(t, rec, &ok)
	if !ok.Success || ok.Size != 4 {
		t.Errorf("validate = %+v", ok)
	}

	withName := "data:image/png;name=logo.png;base64,dGlueQ=="
	rec = s.do(t, http.MethodPost, "/api/validate-image", imageRequest{ImageBase64: withName}, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("data URI with parameters status = %d, body = %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/validate-image", imageRequest{ImageBase64: "data:image/png;base64,%%%"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("invalid payload status = %d, want 400", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/validate-image", imageRequest{ImageBase64: EncodeDataURI("image/png", make([]byte, 200))}, nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized payload status = %d, want 413", rec.Code)
	}
}

func TestHandleOptimize(t *testing.T) {
	s := newTestServer(t, Config{}, WithUploadLimiter(NewRateLimiter(1, time.Minute)))

	req := optimizeRequest{ImageBase64: EncodeDataURI("image/png", makePNG(t, 1000, 500))}
	rec := s.do(t, http.MethodPost, "/api/optimize-image", req, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out optimizeResponse
	decodeBody(t, rec, &out)
	if out.Width != 800 || out.Height != 400 {
		t.Errorf("dimensions = %dx%d, want 800x400", out.Width, out.Height)
	}
	if !strings.HasPrefix(out.ImageData, "data:image/jpeg;base64,") {
		t.Errorf("image_data prefix = %.30s", out.ImageData)
	}

	rec = s.do(t, http.MethodPost, "/api/optimize-image", req, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want 429", rec.Code)
	}
}

func TestHandleOptimizeRejectsUndecodable(t *testing.T) {
	s := newTestServer(t, Config{})
	req := optimizeRequest{ImageBase64: EncodeDataURI("image/png", []byte("garbage"))}
	if rec := s.do(t, http.MethodPost, "/api/optimize-image", req, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleGallery(t *testing.T) {
	s := newTestServer(t, Config{})

	rec := s.do(t, http.MethodGet, "/", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `<img src="data:image/png;base64,`) {
		t.Error("gallery should inline images as data URIs")
	}
	for _, c := range []string{"bebidas", "pratos", "sobremesas"} {
		if !strings.Contains(body, `<h2>`+c+`</h2>`) {
			t.Errorf("gallery missing category %q", c)
		}
	}

	rec = s.do(t, http.MethodGet, "/static/gallery.css", nil, nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ".grid") {
		t.Errorf("stylesheet status = %d", rec.Code)
	}
}

func TestHandleBuilds(t *testing.T) {
	s := newTestServer(t, Config{})
	if rec := s.do(t, http.MethodGet, "/api/builds", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("builds without store status = %d, want 404", rec.Code)
	}

	store := setupTestStore(t)
	id, err := store.RecordBuild(&Report{StartedAt: time.Now(), Images: 4, Categories: []CategoryStats{{Name: "pratos", Images: 4}}})
	if err != nil {
		t.Fatal(err)
	}
	s = newTestServer(t, Config{}, WithStore(store))

	rec := s.do(t, http.MethodGet, "/api/builds", nil, nil)
	var list struct {
		Builds []BuildRecord `json:"builds"`
	}
	decodeBody(t, rec, &list)
	if len(list.Builds) != 1 || list.Builds[0].Images != 4 {
		t.Errorf("builds = %+v", list.Builds)
	}

	rec = s.do(t, http.MethodGet, "/api/builds/"+strconv.FormatInt(id, 10), nil, nil)
	var b BuildRecord
	decodeBody(t, rec, &b)
	if len(b.Categories) != 1 || b.Categories[0].Name != "pratos" {
		t.Errorf("build = %+v", b)
	}

	if rec := s.do(t, http.MethodGet, "/api/builds/999", nil, nil); rec.Code != http.StatusNotFound {
		t.Errorf("missing build status = %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/builds/abc", nil, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d", rec.Code)
	}
}

func TestEtagMatches(t *testing.T) {
	const etag = `"abc123"`
	tests := []struct {
		header string
		want   bool
	}{
		{`"abc123"`, true},
		{`W/"abc123"`, true},
		{`"other", "abc123"`, true},
		{`"other",W/"abc123"`, true},
		{`*`, true},
		{`"other"`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := etagMatches(tt.header, etag); got != tt.want {
			t.Errorf("etagMatches(%q) = %v, want %v", tt.header, got, tt.want)
		}
	}
}

func TestIsImageBytesPath(t *testing.T) {
	tests := map[string]bool{
		"/images/pratos/a.jpg":   true,
		"/images/pratos":         false,
		"/images":                false,
		"/images/preload/pratos": false,
		"/api/images/find/a.jpg": false,
	}
	for path, want := range tests {
		if got := isImageBytesPath(path); got != want {
			t.Errorf("isImageBytesPath(%q) = %v, want %v", path, got, want)
		}
	}
}
