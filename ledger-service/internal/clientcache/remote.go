package clientcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eaglebank/corebank/shared/apperrors"
	"github.com/eaglebank/corebank/shared/models"
)

const DefaultLookupTimeout = 5 * time.Second

// RemoteLookup fetches a client from its owning service. It returns
// apperrors.ErrNotFound when the service says the client does not exist and
// apperrors.ErrRemoteUnavailable for everything else that went wrong.
type RemoteLookup interface {
	LookupClient(ctx context.Context, clientKey string) (*models.CachedClient, error)
}

// HTTPLookup calls GET {baseURL}/internal/clients/{clientKey}.
type HTTPLookup struct {
	baseURL string
	client  *http.Client
}

func NewHTTPLookup(baseURL string, timeout time.Duration) *HTTPLookup {
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &HTTPLookup{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (l *HTTPLookup) LookupClient(ctx context.Context, clientKey string) (*models.CachedClient, error) {
	target := l.baseURL + "/internal/clients/" + url.PathEscape(clientKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", apperrors.ErrRemoteUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: client %s", apperrors.ErrNotFound, clientKey)
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: client service answered %d", apperrors.ErrRemoteUnavailable, resp.StatusCode)
	}

	var client models.CachedClient
	if err := json.NewDecoder(resp.Body).Decode(&client); err != nil {
		return nil, fmt.Errorf("%w: decode client: %v", apperrors.ErrRemoteUnavailable, err)
	}
	if client.ClientKey == "" {
		return nil, fmt.Errorf("%w: client service returned an empty client", apperrors.ErrRemoteUnavailable)
	}
	return &client, nil
}

// remoteOutcome labels a lookup result for metrics.
func remoteOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
