// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package regfile

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/poiesic/agentdex/chains"
)

const (
	// DefaultCacheSize is the default number of fetched files to keep.
	DefaultCacheSize = 512

	// DefaultCacheTTL bounds how long a cached file is served before the
	// next Load fetches it again.
	DefaultCacheTTL = time.Hour

	defaultTimeout = 10 * time.Second
	maxFileBytes   = 2 << 20
)

// Record is one fetched registration file: the raw bytes, their digest
// and the parsed document. Hash is the BLAKE2b-256 hex digest of Raw;
// refresh runs compare it against the stored snapshot to skip unchanged
// files.
type Record struct {
	URI  string
	URL  string
	Raw  []byte
	Hash string
	File *File
}

// Loader fetches registration files by agent URI, resolving ipfs uris and
// bare content ids through an IPFS gateway. Fetched files are cached by
// resolved URL until they expire; Reload bypasses the cache.
type Loader struct {
	httpClient *http.Client
	cache      *expirable.LRU[string, *Record]
	cacheSize  int
	cacheTTL   time.Duration
	gateway    string
	logger     *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader) error

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(l *Loader) error {
		if httpClient == nil {
			return fmt.Errorf("http client cannot be nil")
		}
		l.httpClient = httpClient
		return nil
	}
}

// WithGateway sets the IPFS gateway base URL.
func WithGateway(gateway string) Option {
	return func(l *Loader) error {
		if gateway == "" {
			return fmt.Errorf("gateway cannot be empty")
		}
		l.gateway = gateway
		return nil
	}
}

// WithCacheSize sets the number of fetched files to keep.
func WithCacheSize(size int) Option {
	return func(l *Loader) error {
		if size <= 0 {
			return fmt.Errorf("cache size must be positive")
		}
		l.cacheSize = size
		return nil
	}
}

// WithCacheTTL sets how long cached files are served before refetching.
func WithCacheTTL(ttl time.Duration) Option {
	return func(l *Loader) error {
		if ttl <= 0 {
			return fmt.Errorf("cache ttl must be positive")
		}
		l.cacheTTL = ttl
		return nil
	}
}

// WithLogger sets the logger for fetch diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		l.logger = logger.With("component", "regfile")
		return nil
	}
}

// NewLoader creates a registration file loader.
func NewLoader(opts ...Option) (*Loader, error) {
	l := &Loader{
		httpClient: &http.Client{Timeout: defaultTimeout},
		cacheSize:  DefaultCacheSize,
		cacheTTL:   DefaultCacheTTL,
		gateway:    chains.DefaultGateway,
		logger:     slog.Default().With("component", "regfile"),
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}
	l.cache = expirable.NewLRU[string, *Record](l.cacheSize, nil, l.cacheTTL)
	return l, nil
}

// Load fetches and parses the registration file at uri, returning a
// cached record when the resolved URL was fetched before.
func (l *Loader) Load(ctx context.Context, uri string) (*Record, error) {
	resolved, err := l.ResolveURL(uri)
	if err != nil {
		return nil, err
	}
	if record, ok := l.cache.Get(resolved); ok {
		return record, nil
	}
	return l.fetch(ctx, uri, resolved)
}

// Reload fetches the registration file at uri unconditionally and
// refreshes the cache entry.
func (l *Loader) Reload(ctx context.Context, uri string) (*Record, error) {
	resolved, err := l.ResolveURL(uri)
	if err != nil {
		return nil, err
	}
	return l.fetch(ctx, uri, resolved)
}

// ResolveURL maps an agent URI to a fetchable URL. ipfs uris and bare
// content ids go through the gateway; URLs of well-known public gateways
// are rewritten to the configured one; other http(s) URLs pass through.
func (l *Loader) ResolveURL(uri string) (string, error) {
	uri = strings.TrimSpace(uri)
	switch {
	case uri == "":
		return "", fmt.Errorf("%w: empty uri", ErrUnsupportedURI)
	case strings.HasPrefix(uri, "ipfs://"):
		return l.gatewayURL(strings.TrimPrefix(uri, "ipfs://")), nil
	case isCID(uri):
		return l.gatewayURL(uri), nil
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		if cid, ok := gatewayCID(uri); ok {
			return l.gatewayURL(cid), nil
		}
		return uri, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedURI, uri)
	}
}

func (l *Loader) gatewayURL(cid string) string {
	return strings.TrimRight(l.gateway, "/") + "/" + cid
}

func (l *Loader) fetch(ctx context.Context, uri, resolved string) (*Record, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", ErrFetchFailed, resp.StatusCode, resolved)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxFileBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if len(raw) > maxFileBytes {
		return nil, fmt.Errorf("%w: file at %s exceeds %d bytes", ErrFetchFailed, resolved, maxFileBytes)
	}

	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}

	record := &Record{
		URI:  uri,
		URL:  resolved,
		Raw:  raw,
		Hash: hashBytes(raw),
		File: &file,
	}
	l.cache.Add(resolved, record)

	l.logger.Debug("fetched registration file",
		"url", resolved,
		"bytes", len(raw),
		"duration", time.Since(start))
	return record, nil
}

// hashBytes digests raw file bytes with BLAKE2b-256 for change detection.
func hashBytes(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// URIType labels a registration URI the way indexed agent rows do:
// "ipfs", "https", "http" or "unknown". Bare content ids count as ipfs.
func URIType(uri string) string {
	uri = strings.TrimSpace(uri)
	switch {
	case strings.HasPrefix(uri, "ipfs://"):
		return "ipfs"
	case strings.HasPrefix(uri, "https://"):
		return "https"
	case strings.HasPrefix(uri, "http://"):
		return "http"
	case isCID(uri):
		return "ipfs"
	default:
		return "unknown"
	}
}

// isCID reports whether s looks like a bare IPFS content id: CIDv0 is
// "Qm" plus 44 base58 characters, CIDv1 starts with "baf".
func isCID(s string) bool {
	if strings.HasPrefix(s, "Qm") && len(s) == 46 {
		return true
	}
	return strings.HasPrefix(s, "baf") && len(s) >= 8
}

// knownGateways are public IPFS gateways whose URLs get rewritten to the
// configured gateway.
var knownGateways = []string{
	"ipfs.io",
	"gateway.pinata.cloud",
	"cloudflare-ipfs.com",
	"dweb.link",
	"ipfs.fleek.co",
}

// gatewayCID extracts the content id from a path-style public gateway
// URL such as https://ipfs.io/ipfs/Qm...
func gatewayCID(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := u.Hostname()
	known := false
	for _, g := range knownGateways {
		if host == g || strings.HasSuffix(host, "."+g) {
			known = true
			break
		}
	}
	if !known {
		return "", false
	}
	rest, found := strings.CutPrefix(u.Path, "/ipfs/")
	if !found {
		return "", false
	}
	cid, _, _ := strings.Cut(rest, "/")
	if cid == "" {
		return "", false
	}
	return cid, true
}
