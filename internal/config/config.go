// Package config loads and validates SafeHaven-Core's runtime configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ROI is a region of interest on a camera frame, in normalized [0,1]
// coordinates unless the values exceed 1, in which case callers treat
// them as absolute pixels (see internal/imaging).
type ROI struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
	W float64 `yaml:"w" json:"w"`
	H float64 `yaml:"h" json:"h"`
}

// ZoneClassIDs maps the open/closed semantic states of a zone to the
// detector's class ids.
type ZoneClassIDs struct {
	Open   int `yaml:"open" json:"open"`
	Closed int `yaml:"closed" json:"closed"`
}

// ZoneClassMap is the full per-zone class-id table.
type ZoneClassMap map[string]ZoneClassIDs

// DefaultZoneClassMap is used whenever config supplies no usable mapping.
func DefaultZoneClassMap() ZoneClassMap {
	return ZoneClassMap{
		"garage": {Open: 0, Closed: 1},
		"gate":   {Open: 2, Closed: 3},
		"latch":  {Open: 4, Closed: 5},
	}
}

// ZoneSpec is the static table of event label strings per zone.
type ZoneSpec struct {
	OpenEvent     string
	CloseEvent    string
	LeftOpenEvent string
}

// ZoneSpecs is the built-in zone -> event-label table for garage, gate,
// and latch zones.
var ZoneSpecs = map[string]ZoneSpec{
	"garage": {OpenEvent: "garage_opened", CloseEvent: "garage_closed", LeftOpenEvent: "garage_left_open"},
	"gate":   {OpenEvent: "gate_ajar", CloseEvent: "gate_closed", LeftOpenEvent: "gate_left_open"},
	"latch":  {OpenEvent: "latch_unlocked", CloseEvent: "latch_locked", LeftOpenEvent: "latch_left_open"},
}

// Camera is one configured RTSP source and its named zone ROIs.
type Camera struct {
	Name      string         `yaml:"name" json:"name"`
	StreamURL string         `yaml:"stream_url" json:"stream_url"`
	ROIs      map[string]ROI `yaml:"rois" json:"rois"`
}

// AppConfig is the fully resolved, validated runtime configuration.
type AppConfig struct {
	FrigateBaseURL     string
	MetisDetectorURL   string
	MQTTBroker         string // reserved; unused by the core
	SampleFPS          float64
	LeftOpenMinutes    int
	QueueMax           int
	MetricsPort        int
	HealthPort         int
	LogFormat          string
	LogLevel           string
	StateConfThreshold float64
	MetisTimeoutS      float64
	DebugStateEvery    int
	EmitBootEvent      bool
	EvidenceDir        string
	SaveEventMedia     bool
	DemoEmitIntervalS  int
	DemoZone           string
	RTSPTransport      string
	ZoneClassMap       ZoneClassMap
	Cameras            []Camera

	// Path is the resolved config file path, kept for the file watcher.
	Path string
}

// rawYAML mirrors the on-disk YAML shape; every field is optional because
// env vars can fill (or replace) each of them.
type rawYAML struct {
	FrigateBaseURL     string                 `yaml:"frigate_base_url"`
	MetisDetectorURL   string                 `yaml:"metis_detector_url"`
	MQTTBroker         string                 `yaml:"mqtt_broker"`
	SampleFPS          *float64               `yaml:"sample_fps"`
	LeftOpenMinutes    *int                   `yaml:"left_open_minutes"`
	QueueMax           *int                   `yaml:"queue_max"`
	MetricsPort        *int                   `yaml:"metrics_port"`
	HealthPort         *int                   `yaml:"health_port"`
	LogFormat          string                 `yaml:"log_format"`
	LogLevel           string                 `yaml:"log_level"`
	StateConfThreshold *float64               `yaml:"state_conf_threshold"`
	MetisTimeoutS      *float64               `yaml:"metis_timeout_s"`
	DebugStateEvery    *int                   `yaml:"debug_state_every"`
	EmitBootEvent      *bool                  `yaml:"emit_boot_event"`
	EvidenceDir        string                 `yaml:"evidence_dir"`
	SaveEventMedia     *bool                  `yaml:"save_event_media"`
	DemoEmitIntervalS  *int                   `yaml:"demo_emit_interval_s"`
	DemoZone           string                 `yaml:"demo_zone"`
	RTSPTransport      string                 `yaml:"rtsp_transport"`
	ZoneClassMap       map[string]ZoneClassIDs `yaml:"zone_class_map"`
	Cameras            []Camera               `yaml:"cameras"`
}

// DefaultConfigPath is used when SAFEHAVEN_CONFIG is unset.
const DefaultConfigPath = "/config/safehaven.yml"

// Load reads the YAML config file (if present) and layers environment
// overrides on top, matching the original safehaven-core's load_config
// semantics field for field.
func Load() (*AppConfig, error) {
	path := os.Getenv("SAFEHAVEN_CONFIG")
	if path == "" {
		path = DefaultConfigPath
	}

	var raw rawYAML
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cameras, err := resolveCameras(raw)
	if err != nil {
		return nil, err
	}
	if len(cameras) == 0 {
		return nil, fmt.Errorf("config: no cameras configured; set CAMERAS env or %s cameras list", path)
	}

	zoneClassMap, err := resolveZoneClassMap(raw)
	if err != nil {
		return nil, err
	}

	cfg := &AppConfig{
		Path:               path,
		FrigateBaseURL:     envOr("FRIGATE_BASE_URL", raw.FrigateBaseURL, "http://frigate:5000"),
		MetisDetectorURL:   envOr("METIS_DETECTOR_URL", raw.MetisDetectorURL, "http://metis-detector:8090/detect"),
		MQTTBroker:         envOr("MQTT_BROKER", raw.MQTTBroker, ""),
		SampleFPS:          envOrFloat("SAMPLE_FPS", raw.SampleFPS, 1.0),
		LeftOpenMinutes:    envOrInt("LEFT_OPEN_MINUTES", raw.LeftOpenMinutes, 7),
		QueueMax:           envOrInt("QUEUE_MAX", raw.QueueMax, 50),
		MetricsPort:        envOrInt("METRICS_PORT", raw.MetricsPort, 9108),
		HealthPort:         envOrInt("HEALTH_PORT", raw.HealthPort, 9109),
		LogFormat:          envOr("LOG_FORMAT", raw.LogFormat, "text"),
		LogLevel:           envOr("LOG_LEVEL", raw.LogLevel, "INFO"),
		StateConfThreshold: envOrFloat("STATE_CONF_THRESHOLD", raw.StateConfThreshold, 0.5),
		MetisTimeoutS:      envOrFloat("METIS_TIMEOUT_S", raw.MetisTimeoutS, 2.5),
		DebugStateEvery:    envOrInt("DEBUG_STATE_EVERY", raw.DebugStateEvery, 0),
		EmitBootEvent:      envOrBool("EMIT_BOOT_EVENT", raw.EmitBootEvent, false),
		EvidenceDir:        envOr("EVIDENCE_DIR", raw.EvidenceDir, "/tmp/safehaven_evidence"),
		SaveEventMedia:     envOrBool("SAVE_EVENT_MEDIA", raw.SaveEventMedia, true),
		DemoEmitIntervalS:  envOrInt("DEMO_EMIT_INTERVAL_S", raw.DemoEmitIntervalS, 0),
		DemoZone:           envOr("DEMO_ZONE", raw.DemoZone, "latch"),
		RTSPTransport:      strings.ToLower(envOr("RTSP_TRANSPORT", raw.RTSPTransport, "tcp")),
		ZoneClassMap:       zoneClassMap,
		Cameras:            cameras,
	}

	if cfg.SampleFPS < 0.1 {
		cfg.SampleFPS = 0.1
	}
	if cfg.RTSPTransport != "tcp" && cfg.RTSPTransport != "udp" {
		cfg.RTSPTransport = "tcp"
	}

	return cfg, nil
}

func resolveCameras(raw rawYAML) ([]Camera, error) {
	envCameras := strings.TrimSpace(os.Getenv("CAMERAS"))
	if envCameras == "" {
		return raw.Cameras, nil
	}
	var cameras []Camera
	if err := json.Unmarshal([]byte(envCameras), &cameras); err != nil {
		return nil, fmt.Errorf("config: parse CAMERAS env: %w", err)
	}
	return cameras, nil
}

func resolveZoneClassMap(raw rawYAML) (ZoneClassMap, error) {
	envMap := strings.TrimSpace(os.Getenv("ZONE_CLASS_MAP"))
	var source map[string]ZoneClassIDs
	if envMap != "" {
		if err := json.Unmarshal([]byte(envMap), &source); err != nil {
			return nil, fmt.Errorf("config: parse ZONE_CLASS_MAP env: %w", err)
		}
	} else {
		source = raw.ZoneClassMap
	}
	if len(source) == 0 {
		return DefaultZoneClassMap(), nil
	}
	out := make(ZoneClassMap, len(source))
	for zone, ids := range source {
		out[zone] = ids
	}
	return out, nil
}

func envOr(key, yamlVal, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	if yamlVal != "" {
		return yamlVal
	}
	return def
}

func envOrFloat(key string, yamlVal *float64, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	if yamlVal != nil {
		return *yamlVal
	}
	return def
}

func envOrInt(key string, yamlVal *int, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if yamlVal != nil {
		return *yamlVal
	}
	return def
}

func envOrBool(key string, yamlVal *bool, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		v = strings.TrimSpace(strings.ToLower(v))
		return v == "1" || v == "true"
	}
	if yamlVal != nil {
		return *yamlVal
	}
	return def
}
