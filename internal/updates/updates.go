// Package updates checks for and applies new shell releases. The startup
// sequence runs the probe as an optional stage; the self-update command
// applies the release in place.
package updates

import (
	"context"
	"fmt"

	"github.com/creativeprojects/go-selfupdate"

	"shellboot/pkg/logging"
)

// DefaultRepoSlug is the GitHub repository releases are published to.
const DefaultRepoSlug = "shellboot/shellboot"

// Availability is the outcome of a release probe.
type Availability struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// IsDevVersion reports whether v identifies a development build. Dev builds
// never probe or update.
func IsDevVersion(v string) bool {
	return v == "" || v == "dev"
}

// Probe checks a GitHub repository for newer releases.
type Probe struct {
	slug    string
	version string
}

// NewProbe creates a probe for the given repo slug and running version.
func NewProbe(slug, version string) *Probe {
	if slug == "" {
		slug = DefaultRepoSlug
	}
	return &Probe{slug: slug, version: version}
}

// Check asks the repository for the latest release. Development builds skip
// the network round trip entirely.
func (p *Probe) Check(ctx context.Context) (*Availability, error) {
	if IsDevVersion(p.version) {
		logging.Debug("Updates", "Development build, skipping release probe")
		return &Availability{CurrentVersion: p.version}, nil
	}

	latest, found, err := selfupdate.DetectLatest(ctx, selfupdate.ParseSlug(p.slug))
	if err != nil {
		return nil, fmt.Errorf("failed to detect latest release: %w", err)
	}
	if !found {
		logging.Debug("Updates", "No releases found for %s", p.slug)
		return &Availability{CurrentVersion: p.version}, nil
	}

	avail := &Availability{
		CurrentVersion:  p.version,
		LatestVersion:   latest.Version(),
		UpdateAvailable: latest.GreaterThan(p.version),
		ReleaseURL:      latest.URL,
	}
	if avail.UpdateAvailable {
		logging.Info("Updates", "Update available: %s -> %s", p.version, avail.LatestVersion)
	} else {
		logging.Debug("Updates", "Running latest release %s", p.version)
	}
	return avail, nil
}

// Apply replaces the running binary with the latest release.
func (p *Probe) Apply(ctx context.Context) (*Availability, error) {
	if IsDevVersion(p.version) {
		return nil, fmt.Errorf("cannot self-update a development version (%q)", p.version)
	}

	latest, err := selfupdate.UpdateSelf(ctx, p.version, selfupdate.ParseSlug(p.slug))
	if err != nil {
		return nil, fmt.Errorf("self-update failed: %w", err)
	}

	return &Availability{
		CurrentVersion:  p.version,
		LatestVersion:   latest.Version(),
		UpdateAvailable: latest.GreaterThan(p.version),
		ReleaseURL:      latest.URL,
	}, nil
}
