package platform

import "fmt"

// DebugInfoFlag selects how MSVC emits debug information.
type DebugInfoFlag string

const (
	DebugInfoZi DebugInfoFlag = "-Zi"
	DebugInfoZ7 DebugInfoFlag = "-Z7"
)

// sandboxCompilerVersion is the only Visual Studio release the CEF sandbox links against.
const sandboxCompilerVersion = "14"

// Options are the user selectable build options.
type Options struct {
	UseSandbox    bool          `json:"use_sandbox" yaml:"use_sandbox"`
	DebugInfoFlag DebugInfoFlag `json:"debug_info_flag" yaml:"debug_info_flag"`
}

// DefaultOptions returns sandbox off with embedded (-Z7) debug info.
func DefaultOptions() Options {
	return Options{UseSandbox: false, DebugInfoFlag: DebugInfoZ7}
}

func (o Options) String() string {
	return fmt.Sprintf("use_sandbox=%t debug_info_flag=%s", o.UseSandbox, o.DebugInfoFlag)
}

// ValidateOptions returns a copy of o adjusted to what d supports, together with
// a note for every adjustment made. The input is never modified.
func ValidateOptions(d Descriptor, o Options) (Options, []string, error) {
	adjusted := o
	var notes []string

	switch adjusted.DebugInfoFlag {
	case "":
		adjusted.DebugInfoFlag = DebugInfoZ7
	case DebugInfoZi, DebugInfoZ7:
	default:
		return Options{}, nil, fmt.Errorf("invalid debug_info_flag %q: must be %s or %s",
			o.DebugInfoFlag, DebugInfoZi, DebugInfoZ7)
	}

	if d.OS == Windows && d.IsVisualStudio() && d.CompilerVersion != sandboxCompilerVersion {
		if adjusted.UseSandbox {
			notes = append(notes, fmt.Sprintf(
				"use_sandbox disabled: the CEF sandbox requires Visual Studio %s, got %q",
				sandboxCompilerVersion, d.CompilerVersion))
		}
		adjusted.UseSandbox = false
	}

	return adjusted, notes, nil
}
