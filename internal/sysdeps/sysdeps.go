// Package sysdeps installs the Linux runtime and development packages CEF
// needs on the build host.
package sysdeps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/open-edge-platform/cef-composer/internal/errdefs"
	"github.com/open-edge-platform/cef-composer/internal/platform"
	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
	"github.com/open-edge-platform/cef-composer/internal/utils/shell"
	"github.com/open-edge-platform/cef-composer/internal/utils/slice"
)

var basePackages = []string{
	"libpangocairo-1.0-0",
	"libxcomposite1",
	"libxrandr2",
	"libxcursor1",
	"libatk1.0-0",
	"libcups2",
	"libnss3",
	"libgconf-2-4",
	"libxss1",
	"libasound2",
	"libxtst6",
	"libgtk2.0-dev",
	"libgdk-pixbuf2.0-dev",
	"freeglut3-dev",
}

var archSuffix = map[platform.Arch]string{
	platform.X86:    ":i386",
	platform.X86_64: ":amd64",
	platform.ARMv8:  ":arm64",
	platform.ARMv7:  ":armhf",
}

// Packages returns the apt package names for arch, each qualified with the
// Debian architecture.
func Packages(arch platform.Arch) ([]string, error) {
	suffix, ok := archSuffix[arch]
	if !ok {
		return nil, errdefs.New(errdefs.ErrUnsupportedPlatform, "system packages",
			fmt.Errorf("no Debian architecture for %q", arch))
	}
	pkgs := make([]string, len(basePackages))
	for i, p := range basePackages {
		pkgs[i] = p + suffix
	}
	return pkgs, nil
}

// Installer installs system packages with apt.
type Installer struct {
	Exec shell.Executor
}

// New returns an Installer using exec, or the default executor when exec is nil.
func New(exec shell.Executor) *Installer {
	if exec == nil {
		exec = shell.Default
	}
	return &Installer{Exec: exec}
}

// Supported reports whether packages can be installed for d on this host.
func (i *Installer) Supported(d platform.Descriptor) bool {
	if d.OS != platform.Linux {
		return false
	}
	_, err := i.Exec.LookPath("apt-get")
	return err == nil
}

// Installed returns the subset of pkgs dpkg reports as installed.
func (i *Installer) Installed(ctx context.Context, pkgs []string) []string {
	var installed []string
	for _, p := range pkgs {
		out, err := i.Exec.Exec(ctx, shell.Cmd{
			Name:   "dpkg-query",
			Args:   []string{"-W", "-f=${Status}", p},
			Silent: true,
		})
		if err == nil && strings.Contains(out, "install ok installed") {
			installed = append(installed, p)
		}
	}
	return installed
}

// Install installs the packages CEF needs for d. Hosts without apt and
// non-Linux targets are skipped. Every package that fails is recorded and the
// result is returned as ErrSystemPackageInstallFailed, which callers treat as
// a warning.
func (i *Installer) Install(ctx context.Context, d platform.Descriptor) error {
	log := logger.Named("sysdeps")

	if d.OS != platform.Linux {
		log.Debugf("no system packages needed for %s", d.OS)
		return nil
	}
	if !i.Supported(d) {
		log.Infof("apt-get not available, skipping system package installation")
		return nil
	}

	pkgs, err := Packages(d.Arch)
	if err != nil {
		return err
	}
	missing := slice.Difference(pkgs, i.Installed(ctx, pkgs))
	if len(missing) == 0 {
		log.Infof("all %d system packages already installed", len(pkgs))
		return nil
	}

	if _, err := i.Exec.Exec(ctx, shell.Cmd{Name: "apt-get", Args: []string{"update"}, Sudo: true}); err != nil {
		log.Warnf("apt-get update failed: %v", err)
	}

	var errs []error
	for _, p := range missing {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.Infof("installing %s", p)
		_, err := i.Exec.Exec(ctx, shell.Cmd{
			Name: "apt-get",
			Args: []string{"install", "-y", "--no-install-recommends", p},
			Env:  []string{"DEBIAN_FRONTEND=noninteractive"},
			Sudo: true,
		})
		if err != nil {
			log.Warnf("failed to install %s: %v", p, err)
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
		}
	}
	if len(errs) > 0 {
		return errdefs.New(errdefs.ErrSystemPackageInstallFailed, "install system packages",
			errors.Join(errs...)).WithPlatform(d.String())
	}
	return nil
}
