package shell_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/open-edge-platform/cef-composer/internal/utils/shell"
)

func TestCmdString(t *testing.T) {
	tests := []struct {
		name string
		cmd  shell.Cmd
		want string
	}{
		{"plain", shell.Cmd{Name: "cmake", Args: []string{"--build", "."}}, "cmake --build ."},
		{"sudo", shell.Cmd{Name: "apt-get", Args: []string{"install", "-y", "libnss3:amd64"}, Sudo: true}, "sudo apt-get install -y libnss3:amd64"},
		{"spaces", shell.Cmd{Name: "cmake", Args: []string{"-G", "Unix Makefiles"}}, "cmake -G 'Unix Makefiles'"},
		{"empty arg", shell.Cmd{Name: "cmake", Args: []string{""}}, "cmake ''"},
		{"quote", shell.Cmd{Name: "cmake", Args: []string{"it's"}}, `cmake 'it'\''s'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHostExecutorRejectsUnknownCommand(t *testing.T) {
	h := &shell.HostExecutor{}
	if _, err := h.Exec(context.Background(), shell.Cmd{Name: "rm", Args: []string{"-rf", "/"}}); err == nil {
		t.Fatalf("expected rm to be rejected")
	}
	if _, err := h.LookPath("curl"); err == nil {
		t.Fatalf("expected curl lookup to be rejected")
	}
}

func TestAllowedCommands(t *testing.T) {
	names := shell.AllowedCommands()
	joined := strings.Join(names, ",")
	for _, want := range []string{"apt-get", "cmake", "dpkg-query"} {
		if !strings.Contains(joined, want) {
			t.Errorf("allowed commands %v lack %s", names, want)
		}
	}
}

func TestExecCmdOverride(t *testing.T) {
	originalExecutor := shell.Default
	defer func() { shell.Default = originalExecutor }()

	mock := shell.NewMockExecutor([]shell.MockCommand{
		{Pattern: "cmake --version", Output: "cmake version 3.16.3\n", Error: nil},
		{Pattern: `apt-get install -y .*:i386`, Output: "", Error: errors.New("exit status 100")},
	})
	shell.Default = mock

	out, err := shell.ExecCmd(context.Background(), false, "cmake", "--version")
	if err != nil {
		t.Fatalf("ExecCmd with override failed: %v", err)
	}
	if !strings.Contains(out, "3.16.3") {
		t.Errorf("expected mocked output, got %q", out)
	}

	if _, err := shell.ExecCmdSilent(context.Background(), true, "apt-get", "install", "-y", "libnss3:i386"); err == nil {
		t.Errorf("expected regexp pattern to return the mocked error")
	}

	if _, err := shell.ExecCmdWithStream(context.Background(), false, "cmake", "--build", "."); err != nil {
		t.Errorf("unmatched command should succeed on a non strict mock: %v", err)
	}

	if got := len(mock.Calls()); got != 3 {
		t.Errorf("expected 3 recorded calls, got %d", got)
	}
	if got := mock.CallsMatching("cmake"); len(got) != 2 {
		t.Errorf("expected 2 cmake calls, got %v", got)
	}
	if !mock.Calls()[2].Stream {
		t.Errorf("stream flag not recorded")
	}
}

func TestMockExecutorStrictAndMissing(t *testing.T) {
	originalExecutor := shell.Default
	defer func() { shell.Default = originalExecutor }()

	mock := shell.NewMockExecutor(nil)
	mock.Strict = true
	mock.SetMissing("apt-get")
	shell.Default = mock

	if _, err := shell.Exec(context.Background(), shell.Cmd{Name: "cmake"}); err == nil {
		t.Errorf("strict mock should reject unmatched commands")
	}
	if shell.IsCommandExist("apt-get") {
		t.Errorf("apt-get was marked missing")
	}
	if !shell.IsCommandExist("cmake") {
		t.Errorf("cmake should be reported present")
	}
}

func TestMockExecutorHonoursContext(t *testing.T) {
	mock := shell.NewMockExecutor([]shell.MockCommand{{Pattern: "cmake", Output: "ok"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := mock.Exec(ctx, shell.Cmd{Name: "cmake"}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
