package httpapi

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"
)

// HeaderClassification is forwarded upstream so the application can branch on retries.
const HeaderClassification = "X-Idempotency-Classification"

// NewUpstreamProxy forwards guarded requests to the application at upstream.
func NewUpstreamProxy(upstream *url.URL) *httputil.ReverseProxy {
	rp := httputil.NewSingleHostReverseProxy(upstream)
	director := rp.Director
	rp.Director = func(r *http.Request) {
		director(r)
		r.Header.Del(HeaderClassification)
		if obs, ok := ObservationFromContext(r.Context()); ok {
			r.Header.Set(HeaderClassification, obs.Classification.String())
		}
	}
	// The guard owns the observation headers; upstream copies are dropped.
	rp.ModifyResponse = func(res *http.Response) error {
		res.Header.Del(HeaderObserved)
		res.Header.Del(HeaderWindow)
		return nil
	}
	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Printf("reverse proxy error: %v", err)
		writeError(w, r, http.StatusBadGateway, "UPSTREAM_ERROR", "upstream unavailable", nil)
	}
	return rp
}
