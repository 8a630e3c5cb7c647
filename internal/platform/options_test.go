package platform

import "testing"

func TestValidateOptions(t *testing.T) {
	vs := func(version string) Descriptor {
		return Descriptor{OS: Windows, Arch: X86_64, Compiler: VisualStudio, CompilerVersion: version,
			CompilerRuntime: RuntimeMD, BuildType: Release}
	}
	linux := Descriptor{OS: Linux, Arch: X86_64, Compiler: GCC, BuildType: Release}

	tests := []struct {
		name      string
		d         Descriptor
		in        Options
		want      Options
		wantNotes int
		wantErr   bool
	}{
		{"defaults filled", linux, Options{}, Options{UseSandbox: false, DebugInfoFlag: DebugInfoZ7}, 0, false},
		{"linux sandbox kept", linux, Options{UseSandbox: true, DebugInfoFlag: DebugInfoZi}, Options{UseSandbox: true, DebugInfoFlag: DebugInfoZi}, 0, false},
		{"vs14 sandbox kept", vs("14"), Options{UseSandbox: true}, Options{UseSandbox: true, DebugInfoFlag: DebugInfoZ7}, 0, false},
		{"vs15 sandbox dropped", vs("15"), Options{UseSandbox: true}, Options{UseSandbox: false, DebugInfoFlag: DebugInfoZ7}, 1, false},
		{"vs16 sandbox off no note", vs("16"), Options{UseSandbox: false}, Options{UseSandbox: false, DebugInfoFlag: DebugInfoZ7}, 0, false},
		{"bad debug flag", linux, Options{DebugInfoFlag: "-Zx"}, Options{}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			got, notes, err := ValidateOptions(tt.d, in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateOptions() = %+v, want %+v", got, tt.want)
			}
			if len(notes) != tt.wantNotes {
				t.Errorf("expected %d notes, got %v", tt.wantNotes, notes)
			}
			if in != tt.in {
				t.Errorf("input options were modified: %+v", in)
			}
		})
	}
}

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()
	if o.UseSandbox {
		t.Errorf("sandbox must default to off")
	}
	if o.DebugInfoFlag != DebugInfoZ7 {
		t.Errorf("debug info flag must default to -Z7, got %q", o.DebugInfoFlag)
	}
	if o.String() != "use_sandbox=false debug_info_flag=-Z7" {
		t.Errorf("unexpected String(): %q", o.String())
	}
}
