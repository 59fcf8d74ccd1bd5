package utils

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNaverKeysMissing is returned when the NCP API key pair is not configured.
var ErrNaverKeysMissing = errors.New("naver maps api keys are not configured")

const (
	naverGeocodePath        = "/map-geocode/v2/geocode"
	naverReverseGeocodePath = "/map-reversegeocode/v2/gc"
)

// NaverMapsClient forwards geocoding calls to the NCP Maps gateway.
type NaverMapsClient struct {
	baseURL string
	keyID   string
	key     string
	http    *http.Client
}

// NaverResponse is the upstream reply relayed to the caller as-is.
type NaverResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// NewNaverMapsClient builds a client. httpClient may be nil.
func NewNaverMapsClient(baseURL, keyID, key string, httpClient *http.Client) *NaverMapsClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 5 * time.Second}
	}
	return &NaverMapsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		keyID:   keyID,
		key:     key,
		http:    httpClient,
	}
}

// Geocode resolves an address query.
func (n *NaverMapsClient) Geocode(ctx context.Context, query string) (NaverResponse, error) {
	return n.get(ctx, naverGeocodePath, url.Values{"query": {query}})
}

// ReverseGeocode resolves a coordinate into addresses. NCP expects "lng,lat".
func (n *NaverMapsClient) ReverseGeocode(ctx context.Context, lat, lng string) (NaverResponse, error) {
	return n.get(ctx, naverReverseGeocodePath, url.Values{
		"coords": {lng + "," + lat},
		"orders": {"roadaddr,addr"},
		"output": {"json"},
	})
}

func (n *NaverMapsClient) get(ctx context.Context, path string, q url.Values) (NaverResponse, error) {
	if n.keyID == "" || n.key == "" {
		return NaverResponse{}, ErrNaverKeysMissing
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return NaverResponse{}, err
	}
	req.Header.Set("x-ncp-apigw-api-key-id", n.keyID)
	req.Header.Set("x-ncp-apigw-api-key", n.key)
	req.Header.Set("Accept", "application/json")

	resp, err := n.http.Do(req)
	if err != nil {
		return NaverResponse{}, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return NaverResponse{}, err
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return NaverResponse{Status: resp.StatusCode, ContentType: ct, Body: body}, nil
}
