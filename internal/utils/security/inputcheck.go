package security

import (
	"fmt"
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Limits bounds user supplied strings.
type Limits struct {
	MaxString int
	MaxPath   int
	AllowNL   bool
	AllowTab  bool
}

// DefaultLimits allows multi-line values up to 4 KiB.
func DefaultLimits() Limits {
	return Limits{MaxString: 4096, MaxPath: 4096, AllowNL: true, AllowTab: true}
}

func checkRunes(name, s string, max int, lim Limits) error {
	if s == "" {
		return nil
	}
	if !utf8.ValidString(s) {
		return fmt.Errorf("%s: invalid UTF-8", name)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return fmt.Errorf("%s: contains NUL byte", name)
	}
	if n := utf8.RuneCountInString(s); n > max {
		return fmt.Errorf("%s: too long (%d > %d)", name, n, max)
	}
	for _, r := range s {
		switch {
		case r == '\n' && lim.AllowNL, r == '\t' && lim.AllowTab:
		case !unicode.IsPrint(r):
			return fmt.Errorf("%s: contains non-printable/control runes", name)
		}
	}
	return nil
}

// ValidateString rejects invalid UTF-8, NUL bytes, control characters and
// strings longer than lim.MaxString.
func ValidateString(name, s string, lim Limits) error {
	return checkRunes(name, s, lim.MaxString, lim)
}

// ValidatePath applies ValidateString rules with the path length limit.
func ValidatePath(name, s string, lim Limits) error {
	return checkRunes(name, s, lim.MaxPath, lim)
}

func isPathName(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "path") || strings.Contains(lower, "file") || strings.Contains(lower, "dir")
}

func validateNamed(name, s string, lim Limits) error {
	if isPathName(name) {
		return ValidatePath(name, s, lim)
	}
	return ValidateString(name, s, lim)
}

// ValidateStructStrings walks obj and validates every reachable string.
func ValidateStructStrings(obj any, lim Limits) error {
	return walk(reflect.ValueOf(obj), "config", lim, map[uintptr]bool{})
}

func walk(v reflect.Value, path string, lim Limits, seen map[uintptr]bool) error {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() || seen[v.Pointer()] {
			return nil
		}
		seen[v.Pointer()] = true
		return walk(v.Elem(), path, lim, seen)
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return walk(v.Elem(), path, lim, seen)
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if !t.Field(i).IsExported() {
				continue
			}
			if err := walk(v.Field(i), path+"."+t.Field(i).Name, lim, seen); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			if err := walk(iter.Value(), fmt.Sprintf("%s[%v]", path, iter.Key().Interface()), lim, seen); err != nil {
				return err
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			if err := walk(v.Index(i), fmt.Sprintf("%s[%d]", path, i), lim, seen); err != nil {
				return err
			}
		}
	case reflect.String:
		return validateNamed(path, v.String(), lim)
	}
	return nil
}

// AttachRecursive validates arguments and string flags of root and every
// subcommand before any other PersistentPreRunE runs.
func AttachRecursive(root *cobra.Command, lim Limits) {
	attach(root, lim)
	for _, c := range root.Commands() {
		AttachRecursive(c, lim)
	}
}

func attach(cmd *cobra.Command, lim Limits) {
	prev := cmd.PersistentPreRunE
	cmd.PersistentPreRunE = func(c *cobra.Command, args []string) error {
		if err := validateFlagsAndArgs(c, args, lim); err != nil {
			return err
		}
		if prev != nil {
			return prev(c, args)
		}
		return nil
	}
}

func validateFlagsAndArgs(cmd *cobra.Command, args []string, lim Limits) error {
	for i, a := range args {
		if err := ValidateString(fmt.Sprintf("arg[%d]", i), a, lim); err != nil {
			return err
		}
	}

	var firstErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if firstErr != nil {
			return
		}
		name := "flag --" + f.Name

		var values []string
		switch f.Value.Type() {
		case "string":
			values = []string{f.Value.String()}
		case "stringSlice", "stringArray":
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				values = sv.GetSlice()
			}
		default:
			return
		}

		for i, v := range values {
			label := name
			if len(values) > 1 || f.Value.Type() != "string" {
				label = fmt.Sprintf("%s[%d]", name, i)
			}
			if err := validateNamed(label, v, lim); err != nil {
				firstErr = err
				return
			}
		}
	})
	return firstErr
}
