package indoor

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"
)

const (
	// DefaultFetchTimeout is the default HTTP request timeout for dataset fetches.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultMaxRetries is the default number of retry attempts.
	DefaultMaxRetries = 3

	// defaultBaseBackoff is the base delay for exponential backoff.
	defaultBaseBackoff = 500 * time.Millisecond

	// maxResponseBytes limits a dataset document to 50 MB.
	maxResponseBytes = 50 << 20
)

// FetchOption configures Loader.Fetch.
type FetchOption func(*fetchConfig)

type fetchConfig struct {
	timeout     time.Duration
	maxRetries  int
	baseBackoff time.Duration
	client      *http.Client
}

func defaultFetchConfig() fetchConfig {
	return fetchConfig{
		timeout:     DefaultFetchTimeout,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
	}
}

// WithTimeout sets the HTTP request timeout.
func WithTimeout(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.timeout = d
	}
}

// WithMaxRetries sets the maximum number of attempts.
func WithMaxRetries(n int) FetchOption {
	return func(c *fetchConfig) {
		c.maxRetries = n
	}
}

// WithBaseBackoff sets the base delay for exponential backoff between retries.
func WithBaseBackoff(d time.Duration) FetchOption {
	return func(c *fetchConfig) {
		c.baseBackoff = d
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) FetchOption {
	return func(c *fetchConfig) {
		c.client = client
	}
}

// Loader turns dataset documents into Datasets using one catalog and
// scale factor.
type Loader struct {
	Catalog     *LayerCatalog
	ScaleFactor float64
}

// NewLoader creates a loader. A nil catalog uses DefaultLayerCatalog and a
// zero scale uses DefaultScaleFactor.
func NewLoader(catalog *LayerCatalog, scale float64) *Loader {
	if catalog == nil {
		catalog = DefaultLayerCatalog()
	}
	if scale == 0 {
		scale = DefaultScaleFactor
	}
	return &Loader{Catalog: catalog, ScaleFactor: scale}
}

// LoadBytes parses and normalizes a dataset document.
func (l *Loader) LoadBytes(data []byte) (*Dataset, error) {
	fc, err := ParseFeatureCollection(data)
	if err != nil {
		return nil, err
	}
	return NewDataset(fc, l.Catalog, l.ScaleFactor)
}

// LoadFile reads a dataset document from disk.
func (l *Loader) LoadFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset %s: %w", path, err)
	}
	ds, err := l.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading dataset %s: %w", path, err)
	}
	return ds, nil
}

// Fetch downloads a dataset document, retrying transport failures with
// exponential backoff. Malformed documents are not retried.
func (l *Loader) Fetch(ctx context.Context, url string, opts ...FetchOption) (*Dataset, error) {
	if url == "" {
		return nil, fmt.Errorf("fetch dataset: %w", ErrEmptyAPIURL)
	}

	cfg := defaultFetchConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxRetries < 1 {
		cfg.maxRetries = 1
	}

	client := cfg.client
	if client == nil {
		client = &http.Client{Timeout: cfg.timeout}
	}

	var lastErr error
	for attempt := range cfg.maxRetries {
		if attempt > 0 {
			backoff := cfg.baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch dataset: %w", ctx.Err())
			case <-time.After(backoff):
			}
		}

		body, err := doFetch(ctx, client, url)
		if err != nil {
			lastErr = err
			continue
		}

		ds, err := l.LoadBytes(body)
		if err != nil {
			return nil, fmt.Errorf("fetch dataset: %w", err)
		}
		return ds, nil
	}

	return nil, fmt.Errorf("fetch dataset: all %d attempts failed: %w", cfg.maxRetries, lastErr)
}

// doFetch performs a single HTTP GET and returns the response body bytes.
func doFetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", url, err)
	}
	return body, nil
}
