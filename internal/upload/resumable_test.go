package upload

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matasmazeikaa/copyviral-sub002/internal/pkg/errors"
)

// tusServer is a minimal in-memory resumable upload endpoint.
type tusServer struct {
	mu       sync.Mutex
	data     []byte
	size     int64
	created  bool
	existing bool // simulate an object already at the key
	failNext int  // number of PATCH requests to fail with 500
	patches  int
}

func (s *tusServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if s.existing {
			w.WriteHeader(http.StatusConflict)
			return
		}
		s.size, _ = strconv.ParseInt(r.Header.Get("Upload-Length"), 10, 64)
		s.created = true
		w.Header().Set("Location", "/upload/session-1")
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("/upload/session-1", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()

		switch r.Method {
		case http.MethodHead:
			w.Header().Set("Upload-Offset", strconv.Itoa(len(s.data)))
			w.WriteHeader(http.StatusOK)
		case http.MethodPatch:
			s.patches++
			if s.failNext > 0 {
				s.failNext--
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			offset, _ := strconv.Atoi(r.Header.Get("Upload-Offset"))
			if offset != len(s.data) {
				w.WriteHeader(http.StatusConflict)
				return
			}
			chunk, _ := io.ReadAll(r.Body)
			s.data = append(s.data, chunk...)
			w.Header().Set("Upload-Offset", strconv.Itoa(len(s.data)))
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newClient(t *testing.T, srv *httptest.Server, chunkSize int64) *Client {
	t.Helper()
	return New(Config{
		Endpoint:   srv.URL + "/upload",
		Token:      "upload-token",
		ChunkSize:  chunkSize,
		MaxRetries: 3,
		RetryBase:  time.Millisecond,
		HTTPClient: srv.Client(),
	}, nil)
}

func TestUploadChunked(t *testing.T) {
	ts := &tusServer{}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	payload := bytes.Repeat([]byte("abcdefgh"), 100) // 800 bytes
	c := newClient(t, srv, 128)

	err := c.Upload(context.Background(), "media-library/acct_1/clip.mp4",
		bytes.NewReader(payload), int64(len(payload)), "video/mp4")
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !bytes.Equal(ts.data, payload) {
		t.Errorf("server received %d bytes, want %d intact", len(ts.data), len(payload))
	}
	if ts.patches < 7 {
		t.Errorf("expected chunked transfer, saw %d PATCH calls", ts.patches)
	}
}

func TestUploadRetriesTransientFailure(t *testing.T) {
	ts := &tusServer{failNext: 2}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	payload := bytes.Repeat([]byte("x"), 300)
	c := newClient(t, srv, 100)

	err := c.Upload(context.Background(), "k", bytes.NewReader(payload),
		int64(len(payload)), "video/mp4")
	if err != nil {
		t.Fatalf("Upload should survive transient 500s: %v", err)
	}

	ts.mu.Lock()
	defer ts.mu.Unlock()
	if !bytes.Equal(ts.data, payload) {
		t.Errorf("payload corrupted after retries: got %d bytes", len(ts.data))
	}
}

func TestUploadGivesUpAfterMaxRetries(t *testing.T) {
	ts := &tusServer{failNext: 100}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	payload := []byte("data")
	c := newClient(t, srv, 100)

	err := c.Upload(context.Background(), "k", bytes.NewReader(payload),
		int64(len(payload)), "video/mp4")
	if !errors.IsCode(err, errors.CodeUnavailable) {
		t.Errorf("expected unavailable after exhausted retries, got %v", err)
	}
}

func TestUploadExistingObjectConflicts(t *testing.T) {
	ts := &tusServer{existing: true}
	srv := httptest.NewServer(ts.handler())
	defer srv.Close()

	c := newClient(t, srv, 100)
	err := c.Upload(context.Background(), "k", bytes.NewReader([]byte("d")), 1, "video/mp4")
	if !errors.IsCode(err, errors.CodeAlreadyExists) {
		t.Errorf("upsert is disabled: expected conflict, got %v", err)
	}
}

func TestUploadPermanentRejectionNotRetried(t *testing.T) {
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newClient(t, srv, 100)
	err := c.Upload(context.Background(), "k", bytes.NewReader([]byte("d")), 1, "video/mp4")
	if !errors.IsCode(err, errors.CodeBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}
	if posts != 1 {
		t.Errorf("4xx must not be retried, saw %d attempts", posts)
	}
}
