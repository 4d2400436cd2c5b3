package imgembed

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

const imageCacheMaxAge = 30 * 24 * time.Hour

type imageInfo struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
}

type imageRequest struct {
	ImageBase64 string `json:"image_base64"`
	Filename    string `json:"filename,omitempty"`
}

type optimizeRequest struct {
	ImageBase64 string `json:"image_base64"`
	MaxWidth    int    `json:"max_width"`
	MaxHeight   int    `json:"max_height"`
	Quality     int    `json:"quality"`
}

type optimizeResponse struct {
	ImageData string `json:"image_data"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

func imageURL(category, filename string) string {
	return "/images/" + url.PathEscape(category) + "/" + url.PathEscape(filename)
}

func infos(category string, entries []ManifestEntry) []imageInfo {
	out := make([]imageInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, imageInfo{
			Filename: e.Filename,
			URL:      imageURL(category, e.Filename),
			Size:     e.Size,
			MimeType: e.MimeType,
		})
	}
	return out
}

func handleHealthcheck(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (a *App) handleGallery(c echo.Context) error {
	acc, err := a.Cache.Accessor()
	if err != nil {
		return err
	}
	return renderPage(c, http.StatusOK, Gallery(acc))
}

func (a *App) handleListAll(c echo.Context) error {
	acc, err := a.Cache.Accessor()
	if err != nil {
		return err
	}
	categories := make(map[string][]imageInfo)
	for _, category := range acc.Categories() {
		categories[category] = infos(category, acc.GetImagesByCategory(category))
	}
	return c.JSON(http.StatusOK, map[string]any{"categories": categories})
}

func (a *App) handleListCategory(c echo.Context) error {
	acc, err := a.Cache.Accessor()
	if err != nil {
		return err
	}
	category := c.Param("category")
	if !acc.HasCategory(category) {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}
	entries := acc.GetImagesByCategory(category)
	return c.JSON(http.StatusOK, map[string]any{
		"category": category,
		"images":   infos(category, entries),
	})
}

func (a *App) handlePreload(c echo.Context) error {
	acc, err := a.Cache.Accessor()
	if err != nil {
		return err
	}
	category := c.Param("category")
	if !acc.HasCategory(category) {
		return echo.NewHTTPError(http.StatusNotFound, "category not found")
	}
	entries := acc.GetImagesByCategory(category)
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, imageURL(category, e.Filename))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"category":     category,
		"preload_urls": urls,
		"count":        len(urls),
	})
}

func (a *App) handleImage(c echo.Context) error {
	acc, err := a.Cache.Accessor()
	if err != nil {
		return err
	}
	category := c.Param("category")
	filename := strings.TrimPrefix(c.Param("filename"), "@")
	entry, ok := acc.Entry(category, filename)
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	_, data, err := ParseDataURI(entry.Base64)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`
	h := c.Response().Header()
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(imageCacheMaxAge.Seconds())))
	h.Set("Expires", time.Now().Add(imageCacheMaxAge).UTC().Format(http.TimeFormat))
	h.Set("ETag", etag)
	if etagMatches(c.Request().Header.Get("If-None-Match"), etag) {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, entry.MimeType, data)
}

// etagMatches reports whether an If-None-Match header value matches etag,
// using the weak comparison conditional GETs call for.
func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func (a *App) handleCategories(c echo.Context) error {
	acc, err := a.Cache.Accessor()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"categories": acc.Categories()})
}

func (a *App) handleFind(c echo.Context) error {
	acc, err := a.Cache.Accessor()
	if err != nil {
		return err
	}
	found, ok := acc.FindImage(c.Param("filename"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "image not found")
	}
	return c.JSON(http.StatusOK, found)
}

func (a *App) handleValidate(c echo.Context) error {
	var req imageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	size, err := ValidateDataURI(req.ImageBase64, a.Config.MaxUploadSize)
	if err != nil {
		return conversionError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success":    true,
		"message":    "image is valid",
		"size_bytes": size,
	})
}

func (a *App) handleOptimize(c echo.Context) error {
	if !a.limiter.Allow(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
	}
	var req optimizeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if _, err := ValidateDataURI(req.ImageBase64, a.Config.MaxUploadSize); err != nil {
		return conversionError(err)
	}

	opts := a.Config.OptimizeOptions()
	if req.MaxWidth > 0 {
		opts.MaxWidth = req.MaxWidth
	}
	if req.MaxHeight > 0 {
		opts.MaxHeight = req.MaxHeight
	}
	if req.Quality > 0 {
		opts.Quality = req.Quality
	}
	out, err := OptimizeDataURI(c.Request().Context(), req.ImageBase64, opts)
	if err != nil {
		return conversionError(err)
	}
	return c.JSON(http.StatusOK, optimizeResponse{ImageData: out.DataURI, Width: out.Width, Height: out.Height})
}

func (a *App) handleBuilds(c echo.Context) error {
	if a.Store == nil {
		return echo.NewHTTPError(http.StatusNotFound, "build history is disabled")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}
	builds, err := a.Store.ListBuilds(limit)
	if err != nil {
		return err
	}
	if builds == nil {
		builds = []BuildRecord{}
	}
	return c.JSON(http.StatusOK, map[string]any{"builds": builds})
}

func (a *App) handleBuild(c echo.Context) error {
	if a.Store == nil {
		return echo.NewHTTPError(http.StatusNotFound, "build history is disabled")
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid build id")
	}
	b, err := a.Store.GetBuild(id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "build not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func conversionError(err error) error {
	switch {
	case errors.Is(err, ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ErrInvalidDataURI), errors.Is(err, ErrDecode), errors.Is(err, ErrUnsupportedType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return err
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}
