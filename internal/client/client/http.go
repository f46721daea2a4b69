package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/picdrop/internal/client/models"
	"github.com/dmitrijs2005/picdrop/internal/common"
	"github.com/dmitrijs2005/picdrop/internal/logging"
	"github.com/dmitrijs2005/picdrop/internal/netx"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks to the picdrop server over HTTP/JSON. The bearer
// credential is read from its TokenSource on every request and only ever
// sent to the server's own origin.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	log     logging.Logger

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

// WithTimeout sets the per-request timeout. Non-positive values keep the
// default.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithLogger sets the logger used for transport diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

// NewHTTPClient builds a client for the server at baseURL. tokens may be
// nil for a client that never sends credentials.
func NewHTTPClient(baseURL string, tokens TokenSource, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("server url %q must be absolute", baseURL)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	c := &HTTPClient{
		baseURL: u,
		http:    &http.Client{Timeout: defaultTimeout},
		tokens:  tokens,
		log:     logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// SetUnauthorizedHandler registers fn to run when a request carrying a
// credential is refused with 401 or 403.
func (c *HTTPClient) SetUnauthorizedHandler(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

func (c *HTTPClient) unauthorized(ctx context.Context) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}

func (c *HTTPClient) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

func (c *HTTPClient) resolve(ref string) (*url.URL, error) {
	return netx.Resolve(c.baseURL, strings.TrimPrefix(ref, "/"))
}

// ResolveURL returns the absolute address of a listing's fileUrl.
func (c *HTTPClient) ResolveURL(ref string) (string, error) {
	u, err := c.resolveFetch(ref)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// resolveFetch keeps absolute-path fileUrls relative to the server root,
// the way a browser would.
func (c *HTTPClient) resolveFetch(ref string) (*url.URL, error) {
	if strings.HasPrefix(ref, "/") && !strings.HasPrefix(ref, "//") {
		root := *c.baseURL
		root.Path = "/"
		return netx.Resolve(&root, ref)
	}
	return netx.Resolve(c.baseURL, ref)
}

// sameOrigin reports whether u points at the configured server.
func (c *HTTPClient) sameOrigin(u *url.URL) bool {
	return strings.EqualFold(u.Scheme, c.baseURL.Scheme) && strings.EqualFold(u.Host, c.baseURL.Host)
}

// send issues req with the current credential and returns the response for
// any 2xx status. Other statuses become *APIError.
func (c *HTTPClient) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	var token string
	if c.sameOrigin(req.URL) {
		token = c.token()
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerValue(token))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn(ctx, "request failed", "method", req.Method, "path", req.URL.Path, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	apiErr := readAPIError(resp)
	netx.DrainClose(resp.Body)
	c.log.Debug(ctx, "request refused", "method", req.Method, "path", req.URL.Path, "status", apiErr.Status)

	if apiErr.Unauthorized() && token != "" {
		c.unauthorized(ctx)
	}
	return nil, apiErr
}

func readAPIError(resp *http.Response) *APIError {
	e := &APIError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(body) == 0 {
		return e
	}
	var er errorResponse
	if json.Unmarshal(body, &er) == nil {
		e.Message = er.Error
	}
	return e
}

func (c *HTTPClient) doJSON(ctx context.Context, method, ref string, in, out any) error {
	u, err := c.resolve(ref)
	if err != nil {
		return err
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s: %w", ref, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	defer netx.DrainClose(resp.Body)

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s: %w", ref, err)
	}
	return nil
}

// Register creates an account and returns the temporary password.
func (c *HTTPClient) Register(ctx context.Context, username string) (string, error) {
	var resp registerResponse
	if err := c.doJSON(ctx, http.MethodPost, "auth/register", registerRequest{Username: username}, &resp); err != nil {
		return "", err
	}
	return resp.TempPassword, nil
}

// Login exchanges credentials for a bearer token and the identity.
func (c *HTTPClient) Login(ctx context.Context, username, password string) (string, models.Identity, error) {
	var resp loginResponse
	if err := c.doJSON(ctx, http.MethodPost, "auth/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return "", models.Identity{}, err
	}
	if resp.Token == "" {
		return "", models.Identity{}, errors.New("login response carries no token")
	}

	id := models.Identity{Username: resp.User.Username, MustChangePassword: resp.User.MustChangePassword}
	if id.Username == "" {
		id.Username = username
	}
	return resp.Token, id, nil
}

func (c *HTTPClient) ChangePassword(ctx context.Context, newPassword string) error {
	return c.doJSON(ctx, http.MethodPost, "auth/change-password", changePasswordRequest{NewPassword: newPassword}, nil)
}

func (c *HTTPClient) Contacts(ctx context.Context) ([]models.Contact, error) {
	var out []models.Contact
	if err := c.doJSON(ctx, http.MethodGet, "contacts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) DeleteContact(ctx context.Context, username string) error {
	return c.doJSON(ctx, http.MethodDelete, "contacts/"+url.PathEscape(username), nil, nil)
}

// SearchUsers returns users whose name matches query.
func (c *HTTPClient) SearchUsers(ctx context.Context, query string) ([]models.Contact, error) {
	var out []models.Contact
	ref := "users/search?" + url.Values{"q": {query}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, ref, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SendImage uploads data as a multipart form addressed to to.
func (c *HTTPClient) SendImage(ctx context.Context, to, filename string, data []byte) (models.SendReceipt, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("toUsername", to); err != nil {
		return models.SendReceipt{}, err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	h.Set("Content-Type", http.DetectContentType(data))
	part, err := mw.CreatePart(h)
	if err != nil {
		return models.SendReceipt{}, err
	}
	if _, err := part.Write(data); err != nil {
		return models.SendReceipt{}, err
	}
	if err := mw.Close(); err != nil {
		return models.SendReceipt{}, err
	}

	u, err := c.resolve("messages/send")
	if err != nil {
		return models.SendReceipt{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), &buf)
	if err != nil {
		return models.SendReceipt{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.send(ctx, req)
	if err != nil {
		return models.SendReceipt{}, err
	}
	defer netx.DrainClose(resp.Body)

	var sr sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return models.SendReceipt{}, fmt.Errorf("decode send response: %w", err)
	}
	return models.SendReceipt{Receiver: sr.Receiver, ExpiresAt: sr.ExpiresAt.Time, ShareLink: sr.ShareLink}, nil
}

func (c *HTTPClient) ListSent(ctx context.Context) ([]models.MediaItem, error) {
	var items []sentItem
	if err := c.doJSON(ctx, http.MethodGet, "messages/sent", nil, &items); err != nil {
		return nil, err
	}
	out := make([]models.MediaItem, 0, len(items))
	for _, it := range items {
		out = append(out, it.toModel())
	}
	return out, nil
}

// ListReceived returns received images grouped by sender in server order.
func (c *HTTPClient) ListReceived(ctx context.Context) ([]models.ReceivedGroup, error) {
	var groups receivedListing
	if err := c.doJSON(ctx, http.MethodGet, "messages/received", nil, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// FetchProtected downloads the bytes behind a listing's fileUrl with the
// bearer credential. Addresses outside the server's origin are refused.
func (c *HTTPClient) FetchProtected(ctx context.Context, ref string) ([]byte, error) {
	u, err := c.resolveFetch(ref)
	if err != nil {
		return nil, err
	}
	if !c.sameOrigin(u) {
		c.log.Warn(ctx, "refusing fetch outside server origin", "host", u.Host)
		return nil, fmt.Errorf("%w: %s is not the server", ErrResourceUnavailable, u.Host)
	}
	u = netx.WithQuery(u, common.CacheBustParam, netx.CacheBustValue())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cache-Control", "no-store")

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	defer netx.DrainClose(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %w", ErrUnavailable, err)
	}
	return data, nil
}
