package page

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"
)

const (
	// DefaultMaxBodySize limits how much of a page is read.
	DefaultMaxBodySize = 5 * 1024 * 1024

	// DefaultTimeout bounds one page fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultUserAgent is sent with every request.
	DefaultUserAgent = "blockphrase/1.0"

	// Stdin is the target name that reads from standard input.
	Stdin = "-"
)

// Page is a loaded, UTF-8 encoded HTML page.
type Page struct {
	// Source is the target the page was loaded from.
	Source string

	// URL is set for remote pages.
	URL *url.URL

	// ContentType is the response Content-Type, if any.
	ContentType string

	// Body is the page content.
	Body []byte
}

// Reader returns a reader over the page body.
func (p *Page) Reader() io.Reader {
	return bytes.NewReader(p.Body)
}

// Loader reads pages from files, stdin or the network.
type Loader struct {
	client       *http.Client
	proxyAddress string
	userAgent    string
	maxBodySize  int64
	timeout      time.Duration
	stdin        io.Reader
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithProxy routes HTTP requests through the SOCKS5 proxy at address.
func WithProxy(address string) LoaderOption {
	return func(l *Loader) {
		l.proxyAddress = address
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) LoaderOption {
	return func(l *Loader) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

// WithMaxBodySize sets the size limit in bytes.
func WithMaxBodySize(n int64) LoaderOption {
	return func(l *Loader) {
		if n > 0 {
			l.maxBodySize = n
		}
	}
}

// WithTimeout sets the per-page fetch timeout.
func WithTimeout(d time.Duration) LoaderOption {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithHTTPClient replaces the HTTP client. WithProxy is ignored when set.
func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		l.client = client
	}
}

// WithStdin sets the reader used for the "-" target.
func WithStdin(r io.Reader) LoaderOption {
	return func(l *Loader) {
		l.stdin = r
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	l := &Loader{
		userAgent:   DefaultUserAgent,
		maxBodySize: DefaultMaxBodySize,
		timeout:     DefaultTimeout,
		stdin:       os.Stdin,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.client == nil {
		client, err := newHTTPClient(l.proxyAddress, l.timeout)
		if err != nil {
			return nil, err
		}
		l.client = client
	}
	return l, nil
}

func newHTTPClient(proxyAddress string, timeout time.Duration) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if proxyAddress != "" {
		if !isValidProxyAddress(proxyAddress) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidProxyAddress, proxyAddress)
		}
		dialer, err := proxy.SOCKS5("tcp", proxyAddress, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("SOCKS5 dialer does not support contexts")
		}
		transport.Proxy = nil
		transport.DialContext = contextDialer.DialContext
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}, nil
}

func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}

// Load reads target, which is a file path, "-" or an http(s) URL.
func (l *Loader) Load(ctx context.Context, target string) (*Page, error) {
	switch {
	case target == Stdin:
		return l.read(target, l.stdin)
	case strings.Contains(target, "://"):
		return l.fetch(ctx, target)
	default:
		f, err := os.Open(target) //nolint:gosec // the user names the file
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", target, err)
		}
		defer f.Close()
		return l.read(target, f)
	}
}

func (l *Loader) read(source string, r io.Reader) (*Page, error) {
	body, err := l.readLimited(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", source, err)
	}

	decoded, err := toUTF8(body, "")
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", source, err)
	}
	return &Page{Source: source, Body: decoded}, nil
}

func (l *Loader) fetch(ctx context.Context, target string) (*Page, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url %s: %w", target, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedScheme, u.Scheme)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, target, resp.StatusCode)
	}

	body, err := l.readLimited(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", target, err)
	}

	contentType := resp.Header.Get("Content-Type")
	decoded, err := toUTF8(body, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", target, err)
	}

	return &Page{
		Source:      target,
		URL:         resp.Request.URL,
		ContentType: contentType,
		Body:        decoded,
	}, nil
}

// readLimited reads r, failing when it holds more than maxBodySize bytes.
func (l *Loader) readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, l.maxBodySize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > l.maxBodySize {
		return nil, fmt.Errorf("%w (%d bytes)", ErrBodyTooLarge, l.maxBodySize)
	}
	return body, nil
}

func toUTF8(body []byte, contentType string) ([]byte, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}
