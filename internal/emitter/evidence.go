package emitter

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/shashibhat/safehaven-core/internal/config"
	"github.com/shashibhat/safehaven-core/internal/imaging"
	"github.com/shashibhat/safehaven-core/internal/platform/paths"
)

// dirCacheSize bounds how many "directory already exists" entries the
// evidence writer remembers, avoiding a stat+mkdir syscall pair on
// every single event for cameras/labels already seen recently.
const dirCacheSize = 256

// EvidenceWriter saves ROI-crop and annotated full-frame JPEGs to
// local disk under evidenceDir/camera/label/.
type EvidenceWriter struct {
	BaseDir string
	Logger  *slog.Logger

	knownDirs *lru.Cache[string, struct{}]
}

// NewEvidenceWriter builds a writer rooted at baseDir.
func NewEvidenceWriter(baseDir string, logger *slog.Logger) *EvidenceWriter {
	cache, _ := lru.New[string, struct{}](dirCacheSize)
	return &EvidenceWriter{BaseDir: baseDir, Logger: logger, knownDirs: cache}
}

func (w *EvidenceWriter) ensureDir(dir string) error {
	if _, ok := w.knownDirs.Get(dir); ok {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("emitter: mkdir %s: %w", dir, err)
	}
	w.knownDirs.Add(dir, struct{}{})
	return nil
}

// Write saves the ROI crop and, if full/roi are both present, an
// annotated copy of the full frame, returning the directory they were
// written to.
func (w *EvidenceWriter) Write(camera, label string, roiCrop imaging.Frame, full *imaging.Frame, roi *config.ROI, score float64, now time.Time) (string, error) {
	dir, err := paths.SafeJoin(w.BaseDir, camera, label)
	if err != nil {
		return "", fmt.Errorf("emitter: %w", err)
	}
	if err := w.ensureDir(dir); err != nil {
		return "", err
	}

	ts := now.Unix()

	roiBytes, err := imaging.EncodeJPEG(roiCrop, 90)
	if err != nil {
		return "", fmt.Errorf("emitter: encode roi evidence: %w", err)
	}
	roiPath, err := paths.SafeJoin(dir, fmt.Sprintf("%d_roi.jpg", ts))
	if err != nil {
		return "", fmt.Errorf("emitter: %w", err)
	}
	if err := os.WriteFile(roiPath, roiBytes, 0o644); err != nil {
		return "", fmt.Errorf("emitter: write roi evidence: %w", err)
	}
	w.Logger.Info("emitter: saved local ROI evidence", "path", roiPath)

	if full != nil && roi != nil {
		overlay, err := imaging.DrawROIOverlay(*full, *roi, label, score)
		if err != nil {
			w.Logger.Warn("emitter: draw overlay failed", "err", err)
			return dir, nil
		}
		fullBytes, err := imaging.EncodeJPEG(overlay, 90)
		if err != nil {
			w.Logger.Warn("emitter: encode full-frame evidence failed", "err", err)
			return dir, nil
		}
		fullPath, err := paths.SafeJoin(dir, fmt.Sprintf("%d_full.jpg", ts))
		if err != nil {
			w.Logger.Warn("emitter: unsafe full-frame evidence path", "err", err)
			return dir, nil
		}
		if err := os.WriteFile(fullPath, fullBytes, 0o644); err != nil {
			w.Logger.Warn("emitter: write full-frame evidence failed", "err", err)
			return dir, nil
		}
		w.Logger.Info("emitter: saved local full-frame evidence", "path", fullPath)
	}

	return dir, nil
}
