// Package philsys talks to the national ID verification service: a cookie issuer
// that hands out short-lived session tokens and the verify endpoint that needs one.
package philsys

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/egovauthenticator/api/internal/domain"
)

// CookieName is the session cookie the verify endpoint expects.
const CookieName = "__verify-token"

var tokenPattern = regexp.MustCompile(regexp.QuoteMeta(CookieName) + `=([^;,\s"]+)`)

// ErrNoToken means the cookie issuer answered but no session token could be found.
var ErrNoToken = errors.New("no session token in cookie issuer response")

type Config struct {
	CookieURL  string
	VerifyURL  string
	Timeout    time.Duration
	HTTPClient *http.Client
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg}
}

// Payload is the verify request body.
type Payload struct {
	DateIssued string  `json:"d"`
	Issuer     string  `json:"i"`
	Subject    Subject `json:"sb"`
}

type Subject struct {
	BloodType    string `json:"BF"`
	DateOfBirth  string `json:"DOB"`
	PCN          string `json:"PCN"`
	PlaceOfBirth string `json:"POB"`
	FirstName    string `json:"fn"`
	LastName     string `json:"ln"`
	MiddleName   string `json:"mn"`
	Sex          string `json:"s"`
	Suffix       string `json:"sf"`
}

// Verdict is the verifier's answer. A non-2xx reply is a negative verdict, not an error.
type Verdict struct {
	Authentic bool
	Status    int
	Body      json.RawMessage
	Message   string
}

// FetchSessionToken calls the cookie issuer and returns the session token. Network
// failures and a missing token both wrap domain.ErrVerifierUnavailable.
func (c *Client) FetchSessionToken(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CookieURL, nil)
	if err != nil {
		return "", fmt.Errorf("build cookie request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: cookie issuer: %w", domain.ErrVerifierUnavailable, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("%w: read cookie issuer body: %w", domain.ErrVerifierUnavailable, err)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("%w: cookie issuer status %d", domain.ErrVerifierUnavailable, res.StatusCode)
	}
	token := ExtractToken(res.Header, body)
	if token == "" {
		return "", fmt.Errorf("%w: %w", domain.ErrVerifierUnavailable, ErrNoToken)
	}
	return token, nil
}

// ExtractToken looks for the session token in, by priority: Set-Cookie headers,
// a cookie string field of a JSON body, a JSON array of cookie strings, and a
// nested headers object. The first match wins.
func ExtractToken(h http.Header, body []byte) string {
	for _, v := range h.Values("Set-Cookie") {
		if t := matchToken(v); t != "" {
			return t
		}
	}

	var doc map[string]any
	if json.Unmarshal(body, &doc) != nil {
		return ""
	}
	for _, key := range []string{"cookie", "setCookie", "set-cookie", "Set-Cookie"} {
		if s, ok := doc[key].(string); ok {
			if t := matchToken(s); t != "" {
				return t
			}
		}
	}
	if t := matchAny(doc["cookies"]); t != "" {
		return t
	}
	if headers, ok := doc["headers"].(map[string]any); ok {
		for k, v := range headers {
			if strings.EqualFold(k, "set-cookie") || strings.EqualFold(k, "cookie") {
				if t := matchAny(v); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

func matchAny(v any) string {
	switch val := v.(type) {
	case string:
		return matchToken(val)
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				if t := matchToken(s); t != "" {
					return t
				}
			}
		}
	}
	return ""
}

func matchToken(s string) string {
	m := tokenPattern.FindStringSubmatch(s)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// Verify posts p with the session token as a cookie.
func (c *Client) Verify(ctx context.Context, token string, p Payload) (Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(p)
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal verify payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.VerifyURL, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("build verify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cookie", CookieName+"="+token)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: verify: %w", domain.ErrVerifierUnavailable, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 256<<10))
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: read verify body: %w", domain.ErrVerifierUnavailable, err)
	}
	v := Verdict{Status: res.StatusCode}
	if json.Valid(raw) {
		v.Body = raw
	}
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		v.Authentic = true
		return v, nil
	}
	v.Message = errorMessage(raw, res.StatusCode)
	return v, nil
}

func errorMessage(raw []byte, status int) string {
	var doc struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &doc) == nil {
		if doc.Message != "" {
			return doc.Message
		}
		if doc.Error != "" {
			return doc.Error
		}
	}
	return http.StatusText(status)
}
