package geo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mikey/header-analyzer/internal/core"
	"go.uber.org/zap"
)

// DefaultIPInfoBaseURL is the ipinfo.io endpoint
const DefaultIPInfoBaseURL = "https://ipinfo.io"

type ipInfoResponse struct {
	City    string `json:"city"`
	Region  string `json:"region"`
	Country string `json:"country"`
	Bogon   bool   `json:"bogon"`
}

// IPInfoLocator resolves addresses with ipinfo.io
type IPInfoLocator struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewIPInfoLocator creates an ipinfo.io locator. The token is optional.
func NewIPInfoLocator(baseURL, token string, timeout time.Duration, logger *zap.Logger) *IPInfoLocator {
	if baseURL == "" {
		baseURL = DefaultIPInfoBaseURL
	}
	return &IPInfoLocator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

// Locate implements core.GeoLocator
func (l *IPInfoLocator) Locate(ctx context.Context, ip string) (*core.Location, error) {
	endpoint := fmt.Sprintf("%s/%s/json", l.baseURL, url.PathEscape(ip))

	var header http.Header
	if l.token != "" {
		header = http.Header{"Authorization": []string{"Bearer " + l.token}}
	}

	var resp ipInfoResponse
	if err := getJSON(ctx, l.client, endpoint, header, &resp); err != nil {
		return nil, err
	}
	if resp.Bogon {
		return &core.Location{}, nil
	}

	l.logger.Debug("Located IP", zap.String("provider", "ipinfo"), zap.String("ip", ip))
	return &core.Location{City: resp.City, Region: resp.Region, Country: resp.Country}, nil
}
