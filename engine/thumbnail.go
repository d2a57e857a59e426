package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/drummonds/goIIIF/database"
)

const (
	minThumbnailWidth = 16
	maxThumbnailWidth = 1024
	maxImageSize      = 64 << 20
)

// GetThumbnail fetches the manifest thumbnail and returns it resized to the
// requested width as JPEG
func (serverHandler *ServerHandler) GetThumbnail(context echo.Context) error {
	id := context.Param("id")
	width := serverHandler.ServerConfig.ThumbnailWidth
	if raw := context.QueryParam("w"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return jsonError(context, http.StatusBadRequest, "w must be an integer")
		}
		width = n
	}
	width = min(max(width, minThumbnailWidth), maxThumbnailWidth)

	manifest, err := serverHandler.DB.GetManifest(id)
	if errors.Is(err, database.ErrNotFound) {
		return jsonError(context, http.StatusNotFound, "not found")
	}
	if err != nil {
		Logger.Error("Unable to fetch manifest", "id", id, "error", err)
		return jsonError(context, http.StatusInternalServerError, "unable to fetch manifest")
	}
	if manifest.Thumbnail == "" {
		return jsonError(context, http.StatusNotFound, "manifest has no thumbnail")
	}

	thumb, err := serverHandler.renderThumbnail(context.Request(), manifest.Thumbnail, width)
	if err != nil {
		Logger.Warn("Unable to render thumbnail", "id", id, "url", manifest.Thumbnail, "error", err)
		return jsonError(context, http.StatusBadGateway, "unable to fetch thumbnail")
	}
	context.Response().Header().Set("Cache-Control", "public, max-age=86400")
	return context.Blob(http.StatusOK, "image/jpeg", thumb)
}

func (serverHandler *ServerHandler) renderThumbnail(r *http.Request, imageURL string, width int) ([]byte, error) {
	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := serverHandler.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GET %s returned %s", imageURL, resp.Status)
	}
	return resizeJPEG(io.LimitReader(resp.Body, maxImageSize), width)
}

// resizeJPEG decodes an image and encodes it as JPEG scaled to width,
// keeping the aspect ratio.
func resizeJPEG(r io.Reader, width int) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encoding thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
