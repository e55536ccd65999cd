// Package upload implements a resumable chunked upload client against a
// tus-style endpoint: fixed-size chunks, offset probing on reconnect,
// bearer-token auth, and upsert disabled so an existing object is a
// conflict rather than a silent overwrite.
package upload

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/logger"
)

const (
	// DefaultChunkSize is the fixed transfer unit.
	DefaultChunkSize int64 = 6 * 1024 * 1024

	tusVersion  = "1.0.0"
	offsetCType = "application/offset+octet-stream"
)

// Config tunes the client.
type Config struct {
	// Endpoint is the resumable upload URL (creation target).
	Endpoint string
	// Token is the bearer token sent on every request.
	Token      string
	ChunkSize  int64
	MaxRetries int
	// RetryBase is the first retry delay; each further attempt waits
	// proportionally longer.
	RetryBase  time.Duration
	HTTPClient *http.Client
}

// Client uploads objects in resumable chunks.
type Client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

func New(cfg Config, log *logger.Logger) *Client {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Client{cfg: cfg, http: httpClient, log: log.WithComponent("upload")}
}

// Upload transfers size bytes from r to objectKey. Transient failures
// retry with increasing backoff, re-probing the server-side offset
// before resuming; an object already present at the key is a conflict.
func (c *Client) Upload(ctx context.Context, objectKey string, r io.ReaderAt, size int64, contentType string) error {
	uploadURL, err := c.create(ctx, objectKey, size, contentType)
	if err != nil {
		return err
	}

	offset := int64(0)
	attempt := 0
	for offset < size {
		n := c.cfg.ChunkSize
		if remaining := size - offset; remaining < n {
			n = remaining
		}

		newOffset, err := c.patch(ctx, uploadURL, io.NewSectionReader(r, offset, n), offset, n)
		if err == nil {
			offset = newOffset
			attempt = 0
			continue
		}
		if !retryable(err) {
			return err
		}

		attempt++
		if attempt > c.cfg.MaxRetries {
			return errors.WrapWithCode(err, errors.CodeUnavailable, "upload.chunk",
				"chunk upload failed after retries")
		}

		c.log.FromContext(ctx).Warn("chunk upload failed, retrying",
			"object_key", objectKey,
			"offset", offset,
			"attempt", attempt,
			"error", err.Error(),
		)

		select {
		case <-time.After(c.cfg.RetryBase * time.Duration(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}

		// The server may have kept part of the failed chunk; resume
		// from its recorded offset, not ours.
		if probed, perr := c.probeOffset(ctx, uploadURL); perr == nil {
			offset = probed
		}
	}
	return nil
}

// create opens the upload and returns its chunk-transfer URL.
func (c *Client) create(ctx context.Context, objectKey string, size int64, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, nil)
	if err != nil {
		return "", err
	}
	c.commonHeaders(req)
	req.Header.Set("Upload-Length", strconv.FormatInt(size, 10))
	req.Header.Set("Upload-Metadata", encodeMetadata(map[string]string{
		"objectName":  objectKey,
		"contentType": contentType,
	}))
	req.Header.Set("X-Upsert", "false")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeUnavailable, "upload.create", "upload creation failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", errors.Internal("upload creation returned no location")
		}
		// Location may be relative to the creation endpoint.
		u, err := resp.Request.URL.Parse(loc)
		if err != nil {
			return "", errors.Internal("upload creation returned an invalid location")
		}
		return u.String(), nil
	case resp.StatusCode == http.StatusConflict:
		return "", errors.AlreadyExists("object", objectKey)
	default:
		return "", httpError("upload.create", resp.StatusCode)
	}
}

// patch sends one chunk and returns the server's new offset.
func (c *Client) patch(ctx context.Context, uploadURL string, body io.Reader, offset, n int64) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, uploadURL, body)
	if err != nil {
		return 0, err
	}
	c.commonHeaders(req)
	req.Header.Set("Content-Type", offsetCType)
	req.Header.Set("Upload-Offset", strconv.FormatInt(offset, 10))
	req.ContentLength = n

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeUnavailable, "upload.chunk", "chunk transfer failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		return 0, httpError("upload.chunk", resp.StatusCode)
	}

	newOffset, err := strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
	if err != nil {
		return 0, errors.Internal("server returned an unparsable upload offset")
	}
	return newOffset, nil
}

// probeOffset asks the server how much it has durably received.
func (c *Client) probeOffset(ctx context.Context, uploadURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, uploadURL, nil)
	if err != nil {
		return 0, err
	}
	c.commonHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return 0, httpError("upload.probe", resp.StatusCode)
	}
	return strconv.ParseInt(resp.Header.Get("Upload-Offset"), 10, 64)
}

func (c *Client) commonHeaders(req *http.Request) {
	req.Header.Set("Tus-Resumable", tusVersion)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
}

func httpError(op string, status int) error {
	code := errors.CodeInternal
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = errors.CodeUnauthorized
	case status == http.StatusConflict:
		code = errors.CodeConflict
	case status >= 500:
		code = errors.CodeUnavailable
	case status >= 400:
		code = errors.CodeBadRequest
	}
	return errors.Newf(code, "%s: unexpected status %d", op, status)
}

// retryable reports whether the failure is worth another attempt:
// network-level errors and server-side 5xx only.
func retryable(err error) bool {
	return errors.IsCode(err, errors.CodeUnavailable)
}

func encodeMetadata(meta map[string]string) string {
	out := ""
	for k, v := range meta {
		if v == "" {
			continue
		}
		if out != "" {
			out += ","
		}
		out += fmt.Sprintf("%s %s", k, base64.StdEncoding.EncodeToString([]byte(v)))
	}
	return out
}
