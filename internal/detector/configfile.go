package detector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/pratik-mahalle/driftwatch/internal/domain/drift"
	"github.com/pratik-mahalle/driftwatch/internal/pkg/logger"
)

// configFileExts are the file types tracked when a configured path is a
// directory.
var configFileExts = map[string]bool{
	".json": true,
	".yaml": true,
	".yml":  true,
	".toml": true,
}

// maxRetainedContent caps how much of a tracked file is kept in memory
// for diff rendering. Larger files fall back to hash-only reporting.
const maxRetainedContent = 1 << 20

// ConfigDetector tracks a set of configuration files and reports when
// their content diverges from the recorded baseline.
type ConfigDetector struct {
	paths            []string
	baselineHashes   map[string]string
	baselineContents map[string]string
	logger           *logger.Logger
}

// NewConfigDetector creates a configuration detector. Directory paths
// expand recursively to the tracked configuration file types.
func NewConfigDetector(paths []string, log *logger.Logger) *ConfigDetector {
	return &ConfigDetector{
		paths:            expandPaths(paths),
		baselineHashes:   make(map[string]string),
		baselineContents: make(map[string]string),
		logger:           log,
	}
}

// expandPaths resolves directories to their contained config files.
func expandPaths(paths []string) []string {
	var expanded []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			expanded = append(expanded, p)
			continue
		}
		_ = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if configFileExts[filepath.Ext(path)] {
				expanded = append(expanded, path)
			}
			return nil
		})
	}
	sort.Strings(expanded)
	return expanded
}

// Paths returns the tracked file paths.
func (d *ConfigDetector) Paths() []string {
	return d.paths
}

// CreateBaseline records the current content hash of every tracked file.
// File contents are retained up to a size cap so later drift can be
// reported as a real diff rather than a hash mismatch.
func (d *ConfigDetector) CreateBaseline() {
	for _, path := range d.paths {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		d.baselineHashes[path] = hashContent(content)
		if len(content) <= maxRetainedContent {
			d.baselineContents[path] = string(content)
		}
	}
}

// BaselineHash returns a stable fingerprint over all baseline hashes,
// used for the configuration_hash field of infrastructure snapshots.
func (d *ConfigDetector) BaselineHash() string {
	paths := make([]string, 0, len(d.baselineHashes))
	for p := range d.baselineHashes {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h := sha256.New()
	for _, p := range paths {
		h.Write([]byte(p))
		h.Write([]byte(d.baselineHashes[p]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Name identifies the detector in logs and metrics.
func (d *ConfigDetector) Name() string { return "configuration" }

// Detect satisfies the manager's detector contract.
func (d *ConfigDetector) Detect(_ context.Context) ([]drift.DetectorResult, error) {
	return d.Check(), nil
}

// Check compares every tracked file against its baseline. An unreadable
// tracked path is reported as missing whether or not a baseline was ever
// recorded for it. Calling Check twice without an intervening file change
// yields identical output.
func (d *ConfigDetector) Check() []drift.DetectorResult {
	var results []drift.DetectorResult

	for _, path := range d.paths {
		content, err := os.ReadFile(path)
		if err != nil {
			results = append(results, drift.DetectorResult{
				ResourceType: "configuration_file",
				ResourceName: path,
				DriftType:    drift.TypeConfiguration,
				Severity:     drift.SeverityHigh,
				Issue:        "Configuration file missing",
				Expected:     "File exists",
				Actual:       "File not found",
			})
			continue
		}

		baseline, ok := d.baselineHashes[path]
		if !ok {
			continue
		}

		current := hashContent(content)
		if current == baseline {
			continue
		}

		result := drift.DetectorResult{
			ResourceType: "configuration_file",
			ResourceName: path,
			DriftType:    drift.TypeConfiguration,
			Severity:     drift.SeverityMedium,
			Issue:        "Configuration file modified",
			Expected:     "Hash: " + baseline,
			Actual:       "Hash: " + current,
			Diff:         "Configuration changed (content hash differs)",
		}
		if prior, retained := d.baselineContents[path]; retained && len(content) <= maxRetainedContent {
			result.Diff = Diff(prior, string(content))
		}
		results = append(results, result)
	}

	return results
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
