package storeapi

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"time"

	"github.com/iyhunko/storefront-admin/internal/model"
)

// encodePayload renders a product payload as the multipart form the remote
// store expects. The image bytes are attached as-is.
func encodePayload(payload model.ProductPayload) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	lastUpdated := payload.LastUpdated
	if lastUpdated.IsZero() {
		lastUpdated = time.Now()
	}
	fields := []struct {
		name, value string
	}{
		{"name", payload.Name},
		{"description", payload.Description},
		{"price", payload.Price.String()},
		{"quantity", strconv.Itoa(payload.Quantity)},
		{"category", strconv.FormatInt(payload.CategoryID, 10)},
		{"available", strconv.FormatBool(payload.Available)},
		{"last_updated", lastUpdated.UTC().Format(time.RFC3339Nano)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", f.name, err)
		}
	}

	if payload.Image != nil && len(payload.Image.Content) > 0 {
		filename := payload.Image.Filename
		if filename == "" {
			filename = "image"
		}
		part, err := w.CreateFormFile("image", filename)
		if err != nil {
			return nil, "", fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(payload.Image.Content); err != nil {
			return nil, "", fmt.Errorf("failed to write image part: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
