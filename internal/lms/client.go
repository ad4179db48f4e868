package lms

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	appLog "iltcal/internal/log"
	"iltcal/internal/model"
)

const (
	DefaultSessionsPath = "/enrolled_ilt_sessions"
	DefaultEnrollPath   = "/enroll_ilt_session"

	maxBody = 4 << 20
)

// RequestInfo is the optional enrollment questionnaire.
type RequestInfo struct {
	Accommodation  string `json:"accommodation" validate:"omitempty,oneof=yes no"`
	Comment        string `json:"comment" validate:"max=2000"`
	NumberOfOneWay string `json:"number_of_one_way" validate:"omitempty,numeric"`
	NumberOfReturn string `json:"number_of_return" validate:"omitempty,numeric"`
}

// EnrollRequest is the body of an enrollment POST.
type EnrollRequest struct {
	Session     string      `json:"session" validate:"required"`
	RequestInfo RequestInfo `json:"request_info"`
}

// Validate trims the free-text fields and checks the request.
func (r *EnrollRequest) Validate() error {
	r.Session = strings.TrimSpace(r.Session)
	r.RequestInfo.Accommodation = strings.ToLower(strings.TrimSpace(r.RequestInfo.Accommodation))
	r.RequestInfo.NumberOfOneWay = strings.TrimSpace(r.RequestInfo.NumberOfOneWay)
	r.RequestInfo.NumberOfReturn = strings.TrimSpace(r.RequestInfo.NumberOfReturn)
	if err := validate.Struct(r); err != nil {
		return err
	}
	// "numeric" admits signs and decimals; trip counts are whole numbers.
	for _, v := range []string{r.RequestInfo.NumberOfOneWay, r.RequestInfo.NumberOfReturn} {
		if strings.ContainsAny(v, "-+.") {
			return errors.Errorf("trip counts must be non-negative integers, got %q", v)
		}
	}
	return nil
}

// Options configures a Client.
type Options struct {
	BaseURL      string
	SessionsPath string
	EnrollPath   string
	Token        string
	Timeout      time.Duration
	HTTPClient   *http.Client
}

// Client talks to the LMS session endpoints.
type Client struct {
	base         *url.URL
	sessionsPath string
	enrollPath   string
	token        string
	http         *http.Client
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"))
	if err != nil {
		return nil, errors.Wrap(err, "lms base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("lms base url %q must be absolute", opts.BaseURL)
	}
	c := &Client{
		base:         base,
		sessionsPath: opts.SessionsPath,
		enrollPath:   opts.EnrollPath,
		token:        opts.Token,
		http:         opts.HTTPClient,
	}
	if c.sessionsPath == "" {
		c.sessionsPath = DefaultSessionsPath
	}
	if c.enrollPath == "" {
		c.enrollPath = DefaultEnrollPath
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		c.http = &http.Client{Timeout: timeout}
	}
	return c, nil
}

func (c *Client) endpoint(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// FetchSessions loads the enrolled and open session lists.
func (c *Client) FetchSessions(ctx context.Context) (model.Payload, error) {
	var p model.Payload
	req, err := c.newRequest(ctx, http.MethodGet, c.sessionsPath, nil)
	if err != nil {
		return p, errors.Wrap(err, "build sessions request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return p, errors.Wrap(err, "fetch sessions")
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return p, errors.Errorf("fetch sessions: unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&p); err != nil {
		return p, errors.Wrap(err, "decode sessions")
	}
	appLog.Debug("lms sessions fetched", "enrolled", len(p.Enrolled), "available", len(p.Available))
	return p, nil
}

// enrollResponse covers the shapes the LMS uses to report a refusal with
// a 2xx status.
type enrollResponse struct {
	Success *bool           `json:"success"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// Enroll submits an enrollment. It fails on a non-2xx status or when the
// body reports success:false or carries an error.
func (c *Client) Enroll(ctx context.Context, r EnrollRequest) error {
	if err := r.Validate(); err != nil {
		return err
	}
	payload, err := json.Marshal(&r)
	if err != nil {
		return errors.Wrap(err, "encode enroll request")
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.enrollPath, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build enroll request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "enroll %s", r.Session)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return errors.Wrapf(err, "enroll %s: read body", r.Session)
	}
	if resp.StatusCode/100 != 2 {
		return errors.Errorf("enroll %s: unexpected status %s", r.Session, resp.Status)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var er enrollResponse
	if err := json.Unmarshal(body, &er); err != nil {
		// Non-JSON 2xx bodies count as success.
		return nil
	}
	if er.Success != nil && !*er.Success {
		return errors.Errorf("enroll %s: refused: %s", r.Session, er.Message)
	}
	if e := bytes.TrimSpace(er.Error); len(e) > 0 && !bytes.Equal(e, []byte("null")) && !bytes.Equal(e, []byte("false")) && !bytes.Equal(e, []byte(`""`)) {
		return errors.Errorf("enroll %s: refused: %s", r.Session, string(e))
	}
	return nil
}
