package http

import (
	"net/http"
	"testing"
	"time"
)

func TestNewClient(t *testing.T) {
	redirect := func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}

	tests := []struct {
		name string
		cfg  *ClientConfig
		want func(t *testing.T, c *http.Client)
	}{
		{
			name: "nil config gets default timeout",
			cfg:  nil,
			want: func(t *testing.T, c *http.Client) {
				if c.Timeout != 30*time.Second {
					t.Errorf("timeout %v, want 30s", c.Timeout)
				}
			},
		},
		{
			name: "explicit timeout",
			cfg:  &ClientConfig{Timeout: 10 * time.Second},
			want: func(t *testing.T, c *http.Client) {
				if c.Timeout != 10*time.Second {
					t.Errorf("timeout %v, want 10s", c.Timeout)
				}
			},
		},
		{
			name: "transport and redirect policy carried over",
			cfg: &ClientConfig{
				Timeout:       5 * time.Second,
				Transport:     http.DefaultTransport,
				CheckRedirect: redirect,
			},
			want: func(t *testing.T, c *http.Client) {
				if c.Transport != http.DefaultTransport {
					t.Error("transport not set")
				}
				if c.CheckRedirect == nil {
					t.Error("redirect policy not set")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.cfg)
			if c == nil {
				t.Fatal("nil client")
			}
			tt.want(t, c)
		})
	}
}
