package handler

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"camdash/internal/logger"
)

// ImageProxyHandler forwards snapshot and reference image requests to the
// camera server, so the page only ever talks to the dashboard origin.
func ImageProxyHandler(backend *url.URL, logger *logger.Logger) http.Handler {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(backend)
			pr.Out.Header.Del("Cookie")
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Warning("Image proxy error for %s: %v", r.URL.Path, err)
			http.Error(w, "Image not available", http.StatusBadGateway)
		},
	}
}
