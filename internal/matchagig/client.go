// Package matchagig is a typed client for the MatchaGig screening backend.
package matchagig

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/matchagig/internal/utils"
)

const (
	apiURL    = "http://localhost:8000"
	userAgent = "spigell/matchagig-cli"

	defaultTimeout       = 2 * time.Minute
	defaultRetryAttempts = 3
	defaultRetryDelay    = 2 * time.Second
)

const (
	uploadPath   = "/v1/upload"
	bulkZipPath  = "/v1/bulk-zip"
	summaryPath  = "/v1/summary"
	redFlagsPath = "/v1/redflags"
	seedPath     = "/v1/chat/seed"
	askPath      = "/v1/chat/ask"
	legacyPath   = "/v1/chat"
	overviewPath = "/v1/overview/"
)

type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string

	// RetryAttempts and RetryDelay bound the overview fetch retry loop.
	RetryAttempts int
	RetryDelay    time.Duration

	wait func(ctx context.Context, d time.Duration) error
}

func New(logger *zap.Logger, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  strings.TrimSpace(token),
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:        logger,
		UserAgent:     userAgent,
		RetryAttempts: defaultRetryAttempts,
		RetryDelay:    defaultRetryDelay,
		wait:          utils.WaitFor,
	}
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.APIURL, "/") + path
}
