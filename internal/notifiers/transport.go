package notifiers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const userAgent = "noticehook/0.1"

// Transport performs the outbound HTTP call. A nil response with a nil
// error means the transport gave up without an answer.
type Transport interface {
	Get(rawURL string, params url.Values) (*http.Response, error)
	PostJSON(rawURL string, body any) (*http.Response, error)
}

// HTTPTransport is the net/http backed Transport. No timeout is set beyond
// the client's default.
type HTTPTransport struct {
	client *http.Client
}

func NewHTTPTransport() *HTTPTransport {
	return &HTTPTransport{client: &http.Client{}}
}

// Get appends params to any query already present in rawURL
func (t *HTTPTransport) Get(rawURL string, params url.Values) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parsing webhook url: %w", err)
	}
	if enc := params.Encode(); enc != "" {
		if u.RawQuery == "" {
			u.RawQuery = enc
		} else {
			u.RawQuery = strings.TrimSuffix(u.RawQuery, "&") + "&" + enc
		}
	}

	req, err := http.NewRequest(http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	return t.client.Do(req)
}

func (t *HTTPTransport) PostJSON(rawURL string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	req, err := http.NewRequest(http.MethodPost, rawURL, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	return t.client.Do(req)
}
