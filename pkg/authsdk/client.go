package authsdk

import (
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds every request made by a Client built with
// NewClient and a zero timeout.
const DefaultTimeout = 10 * time.Second

// Client is a client for the tollgate token service.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a client whose requests are bounded by timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL:    strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: timeout},
	}
}
