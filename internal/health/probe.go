package health

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// probeTimeout bounds each individual dependency check.
const probeTimeout = 2 * time.Second

// probeInterval is how often the dependency set is re-checked.
const probeInterval = 5 * time.Second

// isHTTPUp reports whether a GET against url returns a non-5xx status
// within probeTimeout.
func isHTTPUp(ctx context.Context, client *http.Client, url string) bool {
	reqCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}

// RunProbe polls frigateBaseURL's /api/version and metisHealthURL every
// probeInterval, updating state, until ctx is canceled.
func RunProbe(ctx context.Context, frigateBaseURL, metisHealthURL string, state *ReadinessState) {
	client := &http.Client{}
	frigateURL := strings.TrimRight(frigateBaseURL, "/") + "/api/version"

	ticker := time.NewTicker(probeInterval)
	defer ticker.Stop()

	check := func() {
		frigateOK := isHTTPUp(ctx, client, frigateURL)
		metisOK := isHTTPUp(ctx, client, metisHealthURL)
		state.Set(frigateOK && metisOK, map[string]bool{
			"frigate":        frigateOK,
			"metis_detector": metisOK,
		})
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}
