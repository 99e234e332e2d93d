// Package metis talks to the external Metis detector HTTP service and
// reduces its raw detections into a single zone observation.
package metis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shashibhat/safehaven-core/internal/config"
	"github.com/shashibhat/safehaven-core/internal/statemachine"
)

// Detection is one raw bounding-box prediction as returned by Metis:
// [class_id, score, x1, y1, x2, y2, ...]. Only the first two fields are
// used by the state reduction rule; the rest is carried for callers that
// want box geometry (e.g. evidence drawing extensions).
type Detection struct {
	ClassID int
	Score   float64
	X1      float64
	Y1      float64
	X2      float64
	Y2      float64
}

// Client calls the Metis detector over HTTP.
type Client struct {
	DetectURL string
	Timeout   time.Duration
	HTTP      *http.Client
}

// NewClient builds a Client whose HTTP timeout matches metis_timeout_s.
func NewClient(detectURL string, timeoutSeconds float64) *Client {
	timeout := time.Duration(timeoutSeconds * float64(time.Second))
	return &Client{
		DetectURL: detectURL,
		Timeout:   timeout,
		HTTP:      &http.Client{Timeout: timeout},
	}
}

// Detect posts the given JPEG bytes to the detector and returns the
// decoded detection list. A non-array JSON body yields an empty,
// non-error result, matching the reference behavior of silently
// treating unexpected detector output as "nothing detected".
func (c *Client) Detect(ctx context.Context, jpegBytes []byte) ([]Detection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.DetectURL, bytes.NewReader(jpegBytes))
	if err != nil {
		return nil, fmt.Errorf("metis: build request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("metis: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("metis: detector returned status %d", resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		// Not a JSON array (or not JSON at all): treat as no detections,
		// matching the reference's `if not isinstance(data, list): return []`.
		return nil, nil
	}

	out := make([]Detection, 0, len(raw))
	for _, item := range raw {
		var row []float64
		if err := json.Unmarshal(item, &row); err != nil || len(row) < 6 {
			continue
		}
		out = append(out, Detection{
			ClassID: int(row[0]),
			Score:   row[1],
			X1:      row[2],
			Y1:      row[3],
			X2:      row[4],
			Y2:      row[5],
		})
	}
	return out, nil
}

// HealthURL derives the detector's health-check URL from its detect
// endpoint: a path ending in "/detect" has that segment replaced with
// "/healthz"; any other path is replaced wholesale with "/healthz" at
// the host root.
func HealthURL(detectURL string) string {
	u, err := url.Parse(detectURL)
	if err != nil {
		return detectURL
	}
	if strings.HasSuffix(u.Path, "/detect") {
		idx := strings.LastIndex(u.Path, "/")
		u.Path = u.Path[:idx] + "/healthz"
	} else {
		u.Path = "/healthz"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// ReduceState implements the zone state-reduction rule: the highest
// scoring detection for each of the zone's open/closed class ids wins,
// subject to a confidence floor, with ties resolved in favor of open.
func ReduceState(detections []Detection, ids config.ZoneClassIDs, confThreshold float64) (statemachine.ZoneState, float64) {
	var bestOpen, bestClosed float64
	for _, d := range detections {
		switch d.ClassID {
		case ids.Open:
			if d.Score > bestOpen {
				bestOpen = d.Score
			}
		case ids.Closed:
			if d.Score > bestClosed {
				bestClosed = d.Score
			}
		}
	}

	if bestOpen < confThreshold && bestClosed < confThreshold {
		return statemachine.Unknown, 0.0
	}
	if bestOpen >= bestClosed {
		return statemachine.Open, bestOpen
	}
	return statemachine.Closed, bestClosed
}
