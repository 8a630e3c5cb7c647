package security

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestValidateString(t *testing.T) {
	lim := DefaultLimits()
	strict := lim
	strict.AllowNL = false
	strict.AllowTab = false

	tests := []struct {
		name    string
		value   string
		lim     Limits
		wantErr bool
	}{
		{"plain", "Release", lim, false},
		{"empty", "", lim, false},
		{"version with plus", "74.1.19+gb62bacf+chromium-74.0.3729.157", lim, false},
		{"nul", "a\x00b", lim, true},
		{"bell", "a\u0007b", lim, true},
		{"invalid utf8", string([]byte{0xff, 0xfe}), lim, true},
		{"too long", strings.Repeat("a", lim.MaxString+1), lim, true},
		{"newline allowed", "a\nb", lim, false},
		{"newline rejected", "a\nb", strict, true},
		{"tab rejected", "a\tb", strict, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateString("value", tt.value, tt.lim)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateString(%q) error = %v, wantErr %t", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePathUsesPathLimit(t *testing.T) {
	lim := Limits{MaxString: 4, MaxPath: 64}
	if err := ValidatePath("path", "/tmp/cef/package", lim); err != nil {
		t.Errorf("path within MaxPath rejected: %v", err)
	}
	if err := ValidateString("name", "/tmp/cef/package", lim); err == nil {
		t.Errorf("string longer than MaxString accepted")
	}
}

func TestValidateStructStrings(t *testing.T) {
	type source struct {
		BaseURL string
		Mirrors []string
	}
	type recipe struct {
		Name      string
		OutputDir string
		Source    *source
		Extra     map[string]string
		Any       any
		hidden    string
	}

	good := recipe{
		Name:      "cef",
		OutputDir: "/tmp/pkg",
		Source:    &source{BaseURL: "http://example.com", Mirrors: []string{"http://a", "http://b"}},
		Extra:     map[string]string{"k": "v"},
		Any:       "fine",
		hidden:    "bad\x00",
	}
	if err := ValidateStructStrings(good, DefaultLimits()); err != nil {
		t.Fatalf("valid struct rejected: %v", err)
	}

	mutations := map[string]func(r *recipe){
		"top level":  func(r *recipe) { r.Name = "a\x00" },
		"path field": func(r *recipe) { r.OutputDir = "a\x00" },
		"pointer":    func(r *recipe) { r.Source = &source{BaseURL: "a\x00"} },
		"slice":      func(r *recipe) { r.Source = &source{Mirrors: []string{"ok", "a\x00"}} },
		"map value":  func(r *recipe) { r.Extra = map[string]string{"k": "a\x00"} },
		"interface":  func(r *recipe) { r.Any = "a\x00" },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			r := good
			mutate(&r)
			if err := ValidateStructStrings(&r, DefaultLimits()); err == nil {
				t.Errorf("expected rejection")
			}
		})
	}
}

func TestValidateStructStringsPointerCycle(t *testing.T) {
	type node struct {
		Value string
		Next  *node
	}
	a := &node{Value: "ok"}
	b := &node{Value: "ok", Next: a}
	a.Next = b
	if err := ValidateStructStrings(a, DefaultLimits()); err != nil {
		t.Fatalf("cycle should terminate without error: %v", err)
	}
	b.Value = "bad\x00"
	if err := ValidateStructStrings(a, DefaultLimits()); err == nil {
		t.Fatal("expected NUL in cycle to be rejected")
	}
}

func TestValidateFlagsAndArgs(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{Use: "build"}
		cmd.Flags().String("output-dir", "/tmp/pkg", "")
		cmd.Flags().String("base-url", "http://example.com", "")
		cmd.Flags().StringSlice("packages", []string{"libnss3", "libxss1"}, "")
		cmd.Flags().StringArray("define", []string{"A=1"}, "")
		cmd.Flags().Int("workers", 4, "")
		return cmd
	}

	if err := validateFlagsAndArgs(newCmd(), []string{"recipe.yml"}, DefaultLimits()); err != nil {
		t.Fatalf("valid flags rejected: %v", err)
	}
	if err := validateFlagsAndArgs(newCmd(), []string{"bad\x00"}, DefaultLimits()); err == nil {
		t.Errorf("expected NUL in argument to be rejected")
	}

	tests := []struct {
		flag  string
		value string
	}{
		{"output-dir", "bad\x00"},
		{"base-url", "bad\x00"},
		{"packages", "ok,bad\x00"},
		{"define", "bad\x00"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			cmd := newCmd()
			if err := cmd.Flags().Set(tt.flag, tt.value); err != nil {
				t.Fatalf("setting --%s: %v", tt.flag, err)
			}
			if err := validateFlagsAndArgs(cmd, nil, DefaultLimits()); err == nil {
				t.Errorf("expected --%s=%q to be rejected", tt.flag, tt.value)
			}
		})
	}
}

func TestAttachRecursiveChainsExistingHook(t *testing.T) {
	root := &cobra.Command{Use: "root"}
	child := &cobra.Command{Use: "child"}
	root.AddCommand(child)

	called := false
	child.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		called = true
		return nil
	}
	child.Flags().String("name", "ok", "")

	AttachRecursive(root, DefaultLimits())

	if err := child.PersistentPreRunE(child, []string{"ok"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Errorf("existing hook was not chained")
	}

	called = false
	if err := child.Flags().Set("name", "bad\x00"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	if err := child.PersistentPreRunE(child, nil); err == nil {
		t.Fatal("expected error for bad flag in child")
	}
	if called {
		t.Errorf("existing hook must not run after validation fails")
	}
	if root.PersistentPreRunE == nil {
		t.Errorf("root hook not attached")
	}
}
