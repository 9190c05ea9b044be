package transport

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/richard-senior/htft/internal/logger"
)

// maxBodySize bounds a downloaded match log
const maxBodySize = 64 << 20

var (
	httpClient *http.Client
	clientMu   sync.Mutex
)

// Resource is a downloaded document
type Resource struct {
	URL         string
	ContentType string
	Body        []byte
}

// IsHTML reports whether the server declared the body as HTML
func (r *Resource) IsHTML() bool {
	return strings.Contains(r.ContentType, "html")
}

// IsCSV reports whether the server declared the body as CSV
func (r *Resource) IsCSV() bool {
	return strings.Contains(r.ContentType, "csv")
}

// IsSpreadsheet reports whether the server declared the body as an xlsx workbook
func (r *Resource) IsSpreadsheet() bool {
	return strings.Contains(r.ContentType, "spreadsheetml")
}

// getCABundle returns the extra CA bundle at path, if any
func getCABundle(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	caCert, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Failed to read CA bundle", path, err)
		return nil, err
	}
	return caCert, nil
}

// GetHTTPClient returns the shared HTTP client. caBundle names an optional PEM
// file appended to the system roots; timeout applies to whole requests.
func GetHTTPClient(caBundle string, timeout time.Duration) *http.Client {
	clientMu.Lock()
	defer clientMu.Unlock()
	if httpClient != nil {
		return httpClient
	}

	rootCAs, err := x509.SystemCertPool()
	if err != nil {
		logger.Warn("Failed to get system cert pool", err)
		rootCAs = x509.NewCertPool()
	}
	if pem, err := getCABundle(caBundle); err == nil && pem != nil {
		if ok := rootCAs.AppendCertsFromPEM(pem); !ok {
			logger.Warn("Failed to append CA bundle", caBundle)
		} else {
			logger.Info("Added CA bundle to root CAs", caBundle)
		}
	}

	httpClient = &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{RootCAs: rootCAs},
			Proxy:           http.ProxyFromEnvironment,
		},
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("stopped after 10 redirects")
			}
			return nil
		},
	}
	return httpClient
}

// ResetHTTPClient drops the shared client so the next call rebuilds it
func ResetHTTPClient() {
	clientMu.Lock()
	defer clientMu.Unlock()
	httpClient = nil
}

// Fetch downloads url with client, decoding any gzip, deflate or brotli
// content encoding
func Fetch(ctx context.Context, client *http.Client, url string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "htft/1.0 (+match log fetcher)")
	req.Header.Set("Accept", "text/html,text/csv,application/vnd.openxmlformats-officedocument.spreadsheetml.sheet;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")

	logger.Info("Fetching", url)
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request returned error status %d", resp.StatusCode)
	}

	reader, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return &Resource{URL: url, ContentType: resp.Header.Get("Content-Type"), Body: data}, nil
}

// decodeBody wraps body according to its content encoding
func decodeBody(contentEncoding string, body io.ReadCloser) (io.ReadCloser, error) {
	switch contentEncoding {
	case "gzip":
		logger.Debug("Handling gzip compressed content")
		r, err := NewGzipReader(body)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		return r, nil
	case "deflate":
		logger.Debug("Handling deflate compressed content")
		return NewDeflateReader(body)
	case "br":
		logger.Debug("Handling brotli compressed content")
		return NewBrotliReader(body)
	case "", "identity":
		return io.NopCloser(body), nil
	default:
		logger.Warn("Unknown content encoding:", contentEncoding)
		return io.NopCloser(body), nil
	}
}

// NewGzipReader creates a gzip reader from the provided io.ReadCloser
func NewGzipReader(r io.ReadCloser) (io.ReadCloser, error) {
	return gzip.NewReader(r)
}

// NewDeflateReader creates a deflate reader from the provided io.ReadCloser
func NewDeflateReader(r io.ReadCloser) (io.ReadCloser, error) {
	return flate.NewReader(r), nil
}

// NewBrotliReader creates a brotli reader from the provided io.ReadCloser
func NewBrotliReader(r io.ReadCloser) (io.ReadCloser, error) {
	return io.NopCloser(brotli.NewReader(r)), nil
}
