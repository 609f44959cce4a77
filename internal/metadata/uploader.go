// Package metadata uploads token images and metadata JSON to the hosting
// service and returns the content-addressed URI the mint points at.
package metadata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// TokenMetadata is the off-chain JSON stored next to the image.
type TokenMetadata struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Website     string `json:"website,omitempty"`
	Twitter     string `json:"twitter,omitempty"`
	Telegram    string `json:"telegram,omitempty"`
}

// Uploader posts launch assets to the upload service. Uploads happen
// before any on-chain effect, so they are freely retryable.
type Uploader struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

func NewUploader(url string, httpClient *http.Client, logger *zap.Logger) *Uploader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Uploader{url: url, http: httpClient, logger: logger.Named("metadata")}
}

// Upload sends the image and metadata JSON in one multipart request and
// returns the hosted metadata URI. Transient failures are retried with
// exponential backoff inside a bounded window.
func (u *Uploader) Upload(ctx context.Context, image []byte, imageName string, meta TokenMetadata) (string, error) {
	op := func() (string, error) {
		return u.upload(ctx, image, imageName, meta)
	}

	uri, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
	)
	if err != nil {
		return "", fmt.Errorf("metadata upload: %w", err)
	}

	u.logger.Info("metadata uploaded", zap.String("uri", uri), zap.String("symbol", meta.Symbol))
	return uri, nil
}

func (u *Uploader) upload(ctx context.Context, image []byte, imageName string, meta TokenMetadata) (string, error) {
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("marshal metadata: %w", err))
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if len(image) > 0 {
		part, err := writer.CreateFormFile("file", imageName)
		if err != nil {
			return "", backoff.Permanent(err)
		}
		if _, err := part.Write(image); err != nil {
			return "", backoff.Permanent(err)
		}
	}
	if err := writer.WriteField("metadata", string(metaJSON)); err != nil {
		return "", backoff.Permanent(err)
	}
	if err := writer.Close(); err != nil {
		return "", backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.http.Do(req)
	if err != nil {
		return "", err // transient, retried
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return "", fmt.Errorf("upload service returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return "", backoff.Permanent(fmt.Errorf("upload rejected with %d: %s", resp.StatusCode, raw))
	}

	uri := gjson.GetBytes(raw, "uri").String()
	if uri == "" {
		return "", backoff.Permanent(fmt.Errorf("upload service returned no uri: %s", raw))
	}
	return uri, nil
}
