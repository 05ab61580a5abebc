package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/valyala/fasthttp"

	"yeetbank/pkg/logger"
	"yeetbank/pkg/metrics"
)

// Credentials supplies the bearer token and renews it. Refresh receives the
// token that was rejected so an implementation can skip the exchange when
// another caller already replaced it.
type Credentials interface {
	AccessToken() string
	Refresh(ctx context.Context, rejected string) (string, error)
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. http://localhost:8000/api.
	BaseURL             string
	Timeout             time.Duration
	MaxResponseBodySize int
	// Dial overrides the transport dialer; tests use it with an in-memory listener.
	Dial fasthttp.DialFunc
}

// Client talks to the banking REST backend.
type Client struct {
	base    string
	timeout time.Duration
	hc      *fasthttp.Client

	mu    sync.RWMutex
	creds Credentials
}

const defaultTimeout = 15 * time.Second

// New builds a Client. Credentials are attached later with UseCredentials,
// since the session store itself needs a Client to refresh.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := &fasthttp.Client{
		Name:                "yeetbank",
		ReadTimeout:         timeout,
		WriteTimeout:        timeout,
		MaxResponseBodySize: opts.MaxResponseBodySize,
		Dial:                opts.Dial,
	}
	return &Client{
		base:    strings.TrimRight(opts.BaseURL, "/"),
		timeout: timeout,
		hc:      hc,
	}
}

// UseCredentials installs the token source used for authenticated calls.
func (c *Client) UseCredentials(cr Credentials) {
	c.mu.Lock()
	c.creds = cr
	c.mu.Unlock()
}

func (c *Client) credentials() Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base }

type call struct {
	method string
	path   string
	body   any
	form   *form
	header map[string]string
	// public calls carry no bearer token and never trigger a refresh
	public bool
}

type form struct {
	fields [][2]string
	files  []formFile
}

type formFile struct {
	field string
	photo Photo
}

type reply struct {
	status int
	body   []byte
}

// do executes c, refreshing credentials at most once on a 401.
func (c *Client) do(ctx context.Context, cl call, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	creds := c.credentials()
	token := ""
	if !cl.public && creds != nil {
		token = creds.AccessToken()
	}

	rep, err := c.send(ctx, cl, token, 1)
	if err != nil {
		return err
	}
	if rep.status == fasthttp.StatusUnauthorized && !cl.public && creds != nil {
		fresh, err := creds.Refresh(ctx, token)
		if err != nil {
			return err
		}
		rep, err = c.send(ctx, cl, fresh, 2)
		if err != nil {
			return err
		}
	}
	if rep.status < 200 || rep.status >= 300 {
		return &HTTPError{Status: rep.status, Payload: decodePayload(rep.body), Body: rep.body}
	}
	if out == nil || len(bytes.TrimSpace(rep.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(rep.body, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", cl.method, cl.path, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, cl call, token string, attempt int) (reply, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.base + cl.path)
	req.Header.SetMethod(cl.method)
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for k, v := range cl.header {
		req.Header.Set(k, v)
	}
	switch {
	case cl.form != nil:
		body, ctype, err := cl.form.encode()
		if err != nil {
			return reply{}, err
		}
		req.Header.SetContentType(ctype)
		req.SetBody(body)
	case cl.body != nil:
		b, err := json.Marshal(cl.body)
		if err != nil {
			return reply{}, fmt.Errorf("encode %s %s: %w", cl.method, cl.path, err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(b)
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	err := c.hc.DoDeadline(req, resp, deadline)
	status := 0
	if err == nil {
		status = resp.StatusCode()
	}
	metrics.APIRequests.WithLabelValues(cl.method, metrics.StatusClass(status)).Inc()
	logger.LogOutgoingFast(req, status, attempt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return reply{}, ctxErr
		}
		return reply{}, fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	// resp is recycled on return
	return reply{status: status, body: append([]byte(nil), resp.Body()...)}, nil
}

func (f *form) encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, kv := range f.fields {
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", err
		}
	}
	for _, ff := range f.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, ff.field, ff.photo.Filename))
		ctype := ff.photo.ContentType
		if ctype == "" {
			ctype = "application/octet-stream"
		}
		h.Set("Content-Type", ctype)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(ff.photo.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
