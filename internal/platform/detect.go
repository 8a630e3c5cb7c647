package platform

import (
	"runtime"
)

// Host returns a descriptor for the machine the tool runs on, using the
// default toolchain of each OS and a Release build.
func Host() (Descriptor, error) {
	return detect(runtime.GOOS, runtime.GOARCH)
}

func detect(goos, goarch string) (Descriptor, error) {
	hostOS, err := ParseOS(goos)
	if err != nil {
		return Descriptor{}, err
	}
	arch, err := ParseArch(goarch)
	if err != nil {
		return Descriptor{}, err
	}
	return Defaults(hostOS, arch), nil
}

// Defaults returns a Release descriptor for target and arch using the usual
// toolchain of that OS.
func Defaults(target OS, arch Arch) Descriptor {
	d := Descriptor{OS: target, Arch: arch, BuildType: Release}
	switch target {
	case Windows:
		d.Compiler = VisualStudio
		d.CompilerVersion = "16"
		d.CompilerRuntime = RuntimeMD
	case Macos:
		d.Compiler = AppleClang
	default:
		d.Compiler = GCC
	}
	return d
}
