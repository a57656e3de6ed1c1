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

// DefaultIPAPIBaseURL is the free ip-api.com endpoint
const DefaultIPAPIBaseURL = "http://ip-api.com"

type ipAPIResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	City       string `json:"city"`
	RegionName string `json:"regionName"`
	Country    string `json:"country"`
}

// IPAPILocator resolves addresses with ip-api.com
type IPAPILocator struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewIPAPILocator creates an ip-api.com locator. An empty baseURL uses the public endpoint.
func NewIPAPILocator(baseURL string, timeout time.Duration, logger *zap.Logger) *IPAPILocator {
	if baseURL == "" {
		baseURL = DefaultIPAPIBaseURL
	}
	return &IPAPILocator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  newHTTPClient(timeout),
		logger:  logger,
	}
}

// Locate implements core.GeoLocator
func (l *IPAPILocator) Locate(ctx context.Context, ip string) (*core.Location, error) {
	endpoint := fmt.Sprintf("%s/json/%s?fields=status,message,country,regionName,city",
		l.baseURL, url.PathEscape(ip))

	var resp ipAPIResponse
	if err := getJSON(ctx, l.client, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("ip-api lookup for %s failed: %s", ip, resp.Message)
	}

	l.logger.Debug("Located IP", zap.String("provider", "ipapi"), zap.String("ip", ip))
	return &core.Location{City: resp.City, Region: resp.RegionName, Country: resp.Country}, nil
}
