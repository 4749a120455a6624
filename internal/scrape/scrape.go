// Package scrape fetches the order-management page and flattens its HTML
// table into raw rows for the reconciler.
//
// This is the network-facing collaborator: session login, page fetch and
// table extraction live here so the core in internal/track never touches
// I/O. The scraped cells are handed over as plain text; all interpretation
// (row recognition, timestamp parsing) happens downstream.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ybsops/ordertrack/internal/track"
)

// ErrLoginFailed indicates the site rejected the configured credentials.
var ErrLoginFailed = errors.New("login failed")

// Client is a session-holding HTTP client for the order-management site.
type Client struct {
	http       *http.Client
	baseURL    string
	loginPath  string
	managePath string
	username   string
	password   string
}

// Config carries the site coordinates and credentials for a Client.
type Config struct {
	BaseURL    string
	LoginPath  string
	ManagePath string
	Username   string
	Password   string
	Timeout    time.Duration
}

// New creates a Client with a fresh cookie jar. The jar carries the session
// cookie from Login across subsequent fetches.
func New(cfg Config) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		http:       &http.Client{Jar: jar, Timeout: timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		loginPath:  cfg.LoginPath,
		managePath: cfg.ManagePath,
		username:   cfg.Username,
		password:   cfg.Password,
	}, nil
}

// Login posts the credential form and checks for a logged-in response:
// either the site redirected to the manage page or the body carries a
// logout link. Returns ErrLoginFailed when neither holds.
func (c *Client) Login(ctx context.Context) error {
	form := url.Values{
		"username": {c.username},
		"password": {c.password},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+c.loginPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("post login form: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read login response: %w", err)
	}
	if strings.HasSuffix(resp.Request.URL.Path, c.managePath) ||
		strings.Contains(string(body), "Logout") {
		return nil
	}
	return ErrLoginFailed
}

// FetchPage downloads the manage page and returns its table rows as cleaned
// cell text, one slice per <tr>, one entry per <td>. Rows without cells
// (header rows using <th>, spacers) come back empty and are skipped by the
// reconciler's row recognition.
func (c *Client) FetchPage(ctx context.Context) (track.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+c.managePath, nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch manage page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch manage page: unexpected status %s", resp.Status)
	}
	return ParseTable(resp.Body)
}

// ParseTable extracts every table row from an HTML document. Split out from
// FetchPage so tests can feed captured HTML without a server.
func ParseTable(r io.Reader) (track.Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}

	var page track.Page
	doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, track.CleanCell(cell.Text()))
		})
		if len(cells) > 0 {
			page = append(page, cells)
		}
	})
	return page, nil
}
