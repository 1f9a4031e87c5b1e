// Package geocode looks up the zoning attributes of a street address.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
)

var (
	ErrUnavailable       = errors.New("zoning lookup unavailable")
	ErrMissingCredential = errors.New("zoning lookup credential not configured")
)

type Config struct {
	BaseURL   string
	APIKeyEnv string
	Timeout   time.Duration
}

type Client struct {
	apiKey  string
	timeout time.Duration
	lookup  endpoint.Endpoint
}

// NewClient never fails on a missing key; lookups report ErrMissingCredential instead.
func NewClient(cfg Config) (*Client, error) {
	target, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse geocode base url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := httptransport.NewClient(
		http.MethodGet,
		target,
		encodeLookupRequest,
		decodeLookupResponse,
		httptransport.SetClient(&http.Client{Timeout: timeout}),
	)

	return &Client{
		apiKey:  os.Getenv(cfg.APIKeyEnv),
		timeout: timeout,
		lookup:  client.Endpoint(),
	}, nil
}

type lookupRequest struct {
	Address string
	APIKey  string
}

func encodeLookupRequest(_ context.Context, r *http.Request, request any) error {
	req, ok := request.(lookupRequest)
	if !ok {
		return errors.New("invalid request type")
	}

	q := r.URL.Query()
	q.Set("address", req.Address)
	r.URL.RawQuery = q.Encode()

	r.Header.Set("x-api-key", req.APIKey)
	r.Header.Set("Accept", "application/json")
	return nil
}

func decodeLookupResponse(_ context.Context, resp *http.Response) (any, error) {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, resp.Status)
	}

	var attrs Attributes
	if err := json.NewDecoder(resp.Body).Decode(&attrs); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}

	return attrs, nil
}

// Lookup returns the raw attribute map for an address. Every failure,
// including timeouts, wraps ErrUnavailable or ErrMissingCredential.
func (c *Client) Lookup(ctx context.Context, address string) (Attributes, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.lookup(ctx, lookupRequest{
		Address: address,
		APIKey:  c.apiKey,
	})

	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, err
		}

		return nil, fmt.Errorf("%w: %s", ErrUnavailable, err.Error())
	}

	attrs, ok := resp.(Attributes)
	if !ok || attrs == nil {
		return nil, fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	return attrs, nil
}

// Attributes is the loosely typed parcel record returned by the lookup service.
type Attributes map[string]any

// Zoning holds the recognised fields of a parcel record; empty means absent.
type Zoning struct {
	District string `json:"zoning_district,omitempty"`
	Overlay  string `json:"commercial_overlay,omitempty"`
	Borough  string `json:"borough,omitempty"`
}

func (z Zoning) Empty() bool {
	return z.District == "" && z.Overlay == "" && z.Borough == ""
}

// Key names tried in order for each recognised field.
var (
	DistrictKeys = []string{"zoning_district", "zoningDistrict", "zone_district"}
	OverlayKeys  = []string{"commercial_overlay", "commercialOverlay", "overlay"}
	BoroughKeys  = []string{"borough", "boro"}
)

func (a Attributes) Zoning() Zoning {
	return Zoning{
		District: a.First(DistrictKeys...),
		Overlay:  a.First(OverlayKeys...),
		Borough:  a.First(BoroughKeys...),
	}
}

// First returns the first key whose value is a non-blank scalar.
func (a Attributes) First(keys ...string) string {
	for _, key := range keys {
		v, ok := a[key]
		if !ok || v == nil {
			continue
		}

		var str string
		switch val := v.(type) {
		case string:
			str = val
		case float64, bool, json.Number:
			str = fmt.Sprint(val)
		default:
			continue
		}

		str = strings.TrimSpace(str)
		if str != "" {
			return str
		}
	}

	return ""
}
