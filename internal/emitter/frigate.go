// Package emitter talks to Frigate's event API and writes local
// evidence artifacts for semantic state transitions.
package emitter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DrawBox is one entry of a Frigate create-event draw payload.
type DrawBox struct {
	Box   [4]float64 `json:"box"`
	Color [3]int     `json:"color"`
	Score int        `json:"score"` // integer percent, unlike the top-level float score
}

// Draw is the optional draw overlay attached to a create-event call.
type Draw struct {
	Boxes []DrawBox `json:"boxes"`
}

type createEventPayload struct {
	SubLabel         string `json:"sub_label"`
	Score            *float64 `json:"score,omitempty"`
	Duration         *int     `json:"duration,omitempty"`
	IncludeRecording bool     `json:"include_recording"`
	Draw             *Draw    `json:"draw,omitempty"`
}

type createEventResponse struct {
	EventID string `json:"event_id"`
}

// FrigateClient is a thin HTTP client over Frigate's event API.
type FrigateClient struct {
	BaseURL string
	Timeout time.Duration
	HTTP    *http.Client
	Logger  *slog.Logger
}

// NewFrigateClient builds a client against baseURL with the reference
// implementation's 3 second default timeout.
func NewFrigateClient(baseURL string, logger *slog.Logger) *FrigateClient {
	return &FrigateClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Timeout: 3 * time.Second,
		HTTP:    &http.Client{Timeout: 3 * time.Second},
		Logger:  logger,
	}
}

// CreateEvent posts a lifecycle event for camera/label. It returns the
// event id on success, or "" if Frigate rejected the call or the request
// itself failed (both are logged and swallowed rather than propagated,
// since a failed event post must never take down a worker).
func (c *FrigateClient) CreateEvent(camera, label, subLabel string, score float64, duration int, includeRecording bool, draw *Draw) string {
	url := fmt.Sprintf("%s/api/events/%s/%s/create", c.BaseURL, camera, label)
	payload := createEventPayload{
		SubLabel:         subLabel,
		Score:            &score,
		Duration:         &duration,
		IncludeRecording: includeRecording,
		Draw:             draw,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		c.Logger.Warn("emitter: marshal create-event payload failed", "url", url, "err", err)
		return ""
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		c.Logger.Warn("emitter: build create-event request failed", "url", url, "err", err)
		return ""
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Logger.Warn("emitter: create-event request error", "url", url, "err", err)
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		c.Logger.Warn("emitter: create-event failed", "url", url, "status", resp.StatusCode)
		return ""
	}

	var decoded createEventResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ""
	}
	c.Logger.Info("emitter: create-event success", "url", url, "status", resp.StatusCode)
	return decoded.EventID
}

// FetchEventMedia best-effort fetches Frigate's snapshot and clip for
// eventID into outDir, logging (not erroring) on any failure. Frigate
// may not have finished generating them yet.
func (c *FrigateClient) FetchEventMedia(eventID, outDir string, mkdirAll func(string) error, writeFile func(string, []byte) error) {
	if err := mkdirAll(outDir); err != nil {
		c.Logger.Warn("emitter: create evidence dir failed", "dir", outDir, "err", err)
		return
	}

	media := []struct{ name, ext string }{
		{"snapshot.jpg", "jpg"},
		{"clip.mp4", "mp4"},
	}
	client := &http.Client{Timeout: 10 * time.Second}
	for _, m := range media {
		url := fmt.Sprintf("%s/api/events/%s/%s", c.BaseURL, eventID, m.name)
		resp, err := client.Get(url)
		if err != nil {
			c.Logger.Info("emitter: event media fetch failed", "url", url, "err", err)
			continue
		}
		func() {
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				c.Logger.Info("emitter: event media unavailable yet", "url", url, "status", resp.StatusCode)
				return
			}
			var buf bytes.Buffer
			if _, err := buf.ReadFrom(resp.Body); err != nil || buf.Len() == 0 {
				c.Logger.Info("emitter: event media fetch empty", "url", url)
				return
			}
			path := fmt.Sprintf("%s/%s.%s", outDir, eventID, m.ext)
			if err := writeFile(path, buf.Bytes()); err != nil {
				c.Logger.Warn("emitter: write event media failed", "path", path, "err", err)
				return
			}
			c.Logger.Info("emitter: saved event media", "path", path)
		}()
	}
}
