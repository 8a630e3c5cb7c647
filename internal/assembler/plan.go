package assembler

import (
	"github.com/open-edge-platform/cef-composer/internal/platform"
)

// Plan gathers every computed value for one packaging run.
type Plan struct {
	Version        string              `json:"version" yaml:"version"`
	Platform       platform.Descriptor `json:"platform" yaml:"platform"`
	Options        platform.Options    `json:"options" yaml:"options"`
	Notes          []string            `json:"notes,omitempty" yaml:"notes,omitempty"`
	DistributionID string              `json:"distribution_id" yaml:"distribution_id"`
	ArchiveURL     string              `json:"archive_url" yaml:"archive_url"`
	Generator      string              `json:"generator,omitempty" yaml:"generator,omitempty"`
	BuildConfig    BuildConfig         `json:"build_config" yaml:"build_config"`
	CopyManifest   []CopyRule          `json:"copy_manifest" yaml:"copy_manifest"`
	PackageInfo    PackageInfo         `json:"package_info" yaml:"package_info"`
}

// Plan validates d and o and computes the full plan. The options in the
// result are the adjusted ones; Notes explains each adjustment.
func (a *Assembler) Plan(d platform.Descriptor, o platform.Options) (*Plan, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	opts, notes, err := platform.ValidateOptions(d, o)
	if err != nil {
		return nil, err
	}

	id, err := a.DistributionID(d)
	if err != nil {
		return nil, err
	}
	url, err := a.ArchiveURL(d)
	if err != nil {
		return nil, err
	}
	cfg, err := a.BuildConfig(d, opts)
	if err != nil {
		return nil, err
	}
	rules, err := a.CopyManifest(d, opts)
	if err != nil {
		return nil, err
	}
	info, err := a.PackageInfo(d, opts)
	if err != nil {
		return nil, err
	}

	return &Plan{
		Version:        a.cfg.Version,
		Platform:       d,
		Options:        opts,
		Notes:          notes,
		DistributionID: id,
		ArchiveURL:     url,
		Generator:      Generator(d),
		BuildConfig:    cfg,
		CopyManifest:   rules,
		PackageInfo:    info,
	}, nil
}
