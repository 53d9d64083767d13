package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-quant/pkg/errors"
)

// CheckCompatibility checks if the engine's strategy API version and a
// strategy's reported version are compatible. Returns nil if compatible,
// an error with details if not.
//
// Compatibility rules:
//   - If either version is "main" (development build), the check is skipped
//   - Major versions must match exactly
//   - Minor versions must match exactly
//   - Patch versions can differ (e.g., 1.2.0 is compatible with 1.2.5)
func CheckCompatibility(engineVersion, strategyVersion string) error {
	engineVersion = strings.TrimPrefix(engineVersion, "v")
	strategyVersion = strings.TrimPrefix(strategyVersion, "v")

	// Skip version check for "main" (development builds)
	if engineVersion == "main" || strategyVersion == "main" {
		return nil
	}

	engineSemver, err := semver.NewVersion(engineVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid engine version %q", engineVersion)
	}

	strategySemver, err := semver.NewVersion(strategyVersion)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid strategy version %q", strategyVersion)
	}

	if engineSemver.Major() != strategySemver.Major() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"major version mismatch: engine is %d.x.x but strategy requires %d.x.x",
			engineSemver.Major(), strategySemver.Major())
	}

	if engineSemver.Minor() != strategySemver.Minor() {
		return errors.Newf(errors.ErrCodeVersionMismatch,
			"minor version mismatch: engine is %d.%d.x but strategy requires %d.%d.x",
			engineSemver.Major(), engineSemver.Minor(),
			strategySemver.Major(), strategySemver.Minor())
	}

	// Patch versions can differ
	return nil
}
