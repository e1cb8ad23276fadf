// Package proxy forwards public API calls to the owning service.
package proxy

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eaglebank/corebank/shared/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OperatorHeader carries the authenticated operator to the services.
const OperatorHeader = "X-Operator-ID"

// hop-by-hop headers are not forwarded in either direction.
var hopHeaders = map[string]bool{
	"Connection":        true,
	"Keep-Alive":        true,
	"Transfer-Encoding": true,
	"Upgrade":           true,
	"Content-Length":    true,
}

type Proxy struct {
	client *http.Client
	log    *zap.Logger
}

func New(timeout time.Duration, log *zap.Logger) *Proxy {
	return &Proxy{client: &http.Client{Timeout: timeout}, log: log}
}

// To returns a handler forwarding the request path and query unchanged to
// serviceURL.
func (p *Proxy) To(serviceURL string) gin.HandlerFunc {
	serviceURL = strings.TrimSuffix(serviceURL, "/")

	return func(c *gin.Context) {
		targetURL := serviceURL + c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			targetURL += "?" + c.Request.URL.RawQuery
		}

		var body io.Reader
		if c.Request.Body != nil {
			b, err := io.ReadAll(c.Request.Body)
			if err != nil {
				middleware.RespondWithError(c, http.StatusBadRequest, "Failed to read request body")
				return
			}
			body = bytes.NewReader(b)
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, targetURL, body)
		if err != nil {
			middleware.RespondWithError(c, http.StatusInternalServerError, "Failed to create request")
			return
		}
		copyHeaders(req.Header, c.Request.Header)
		req.Header.Del(OperatorHeader)
		if operatorID, ok := middleware.GetOperatorID(c); ok {
			req.Header.Set(OperatorHeader, operatorID)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			p.log.Warn("upstream request failed", zap.String("target", targetURL), zap.Error(err))
			middleware.RespondWithError(c, http.StatusBadGateway, "Service unavailable")
			return
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			middleware.RespondWithError(c, http.StatusBadGateway, "Failed to read response")
			return
		}

		for key, values := range resp.Header {
			if hopHeaders[key] || key == "Content-Type" {
				continue
			}
			for _, value := range values {
				c.Writer.Header().Add(key, value)
			}
		}
		c.Data(resp.StatusCode, resp.Header.Get("Content-Type"), respBody)
	}
}

func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		if hopHeaders[key] {
			continue
		}
		for _, value := range values {
			dst.Add(key, value)
		}
	}
}
