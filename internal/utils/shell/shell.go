package shell

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/open-edge-platform/cef-composer/internal/utils/logger"
)

// allowedCommands lists every program the tool may start.
var allowedCommands = map[string]bool{
	"apt-get":    true,
	"cmake":      true,
	"dpkg-query": true,
	"sudo":       true,
	"xcodebuild": true,
}

// Cmd describes one program invocation. Arguments are passed to the program
// as is, without a shell in between.
type Cmd struct {
	Name   string
	Args   []string
	Dir    string   // working directory, current directory when empty
	Env    []string // extra KEY=VALUE pairs appended to the process environment
	Sudo   bool     // run through sudo -E unless already root
	Stream bool     // log output line by line while the command runs
	Silent bool     // do not log output
	Stdin  string
}

// String renders the command the way a user would type it.
func (c Cmd) String() string {
	parts := make([]string, 0, len(c.Args)+2)
	if c.Sudo {
		parts = append(parts, "sudo")
	}
	parts = append(parts, quoteArg(c.Name))
	for _, a := range c.Args {
		parts = append(parts, quoteArg(a))
	}
	return strings.Join(parts, " ")
}

func quoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, " \t\n\"'$\\;&|<>*?()") {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// Executor runs commands.
type Executor interface {
	Exec(ctx context.Context, c Cmd) (string, error)
	LookPath(name string) (string, error)
}

// Default is the executor used by the package level helpers. Tests replace it.
var Default Executor = &HostExecutor{}

// Exec runs c with the Default executor.
func Exec(ctx context.Context, c Cmd) (string, error) {
	return Default.Exec(ctx, c)
}

// ExecCmd runs name with args and returns the combined output.
func ExecCmd(ctx context.Context, sudo bool, name string, args ...string) (string, error) {
	return Default.Exec(ctx, Cmd{Name: name, Args: args, Sudo: sudo})
}

// ExecCmdSilent is ExecCmd without logging the output.
func ExecCmdSilent(ctx context.Context, sudo bool, name string, args ...string) (string, error) {
	return Default.Exec(ctx, Cmd{Name: name, Args: args, Sudo: sudo, Silent: true})
}

// ExecCmdWithStream runs name with args, logging output as it arrives.
func ExecCmdWithStream(ctx context.Context, sudo bool, name string, args ...string) (string, error) {
	return Default.Exec(ctx, Cmd{Name: name, Args: args, Sudo: sudo, Stream: true})
}

// IsCommandExist reports whether name can be found on PATH.
func IsCommandExist(name string) bool {
	_, err := Default.LookPath(name)
	return err == nil
}

// HostExecutor starts real processes.
type HostExecutor struct{}

func verifyCommand(name string) error {
	if !allowedCommands[name] {
		return fmt.Errorf("command %s is not in the allowed command list", name)
	}
	return nil
}

// LookPath resolves an allowed command on PATH.
func (h *HostExecutor) LookPath(name string) (string, error) {
	if err := verifyCommand(name); err != nil {
		return "", err
	}
	return exec.LookPath(name)
}

func needsSudo(c Cmd) bool {
	return c.Sudo && runtime.GOOS != "windows" && os.Geteuid() != 0
}

// Exec runs c and returns its output. With Stream only stdout is returned.
func (h *HostExecutor) Exec(ctx context.Context, c Cmd) (string, error) {
	log := logger.Logger()

	name, args := c.Name, c.Args
	if needsSudo(c) {
		args = append([]string{"-E", name}, args...)
		name = "sudo"
	}
	if err := verifyCommand(c.Name); err != nil {
		return "", err
	}
	path, err := h.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("locating %s: %w", name, err)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	log.Debugf("Exec: [%s]", c)

	if c.Stream {
		return streamOutput(cmd, c)
	}

	output, err := cmd.CombinedOutput()
	out := string(output)
	if err != nil {
		if out != "" && !c.Silent {
			log.Info(out)
		}
		return out, fmt.Errorf("failed to exec %s: %w", c, err)
	}
	if out != "" && !c.Silent {
		log.Debug(out)
	}
	return out, nil
}

func streamOutput(cmd *exec.Cmd, c Cmd) (string, error) {
	log := logger.Logger()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stdout pipe for %s: %w", c, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return "", fmt.Errorf("failed to get stderr pipe for %s: %w", c, err)
	}
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start %s: %w", c, err)
	}

	var (
		wg  sync.WaitGroup
		omu sync.Mutex
		out strings.Builder
	)
	scan := func(r io.Reader, keep bool) {
		defer wg.Done()
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		for sc.Scan() {
			line := sc.Text()
			if line == "" {
				continue
			}
			if !c.Silent {
				log.Info(line)
			}
			if keep {
				omu.Lock()
				out.WriteString(line)
				out.WriteByte('\n')
				omu.Unlock()
			}
		}
	}
	wg.Add(2)
	go scan(stdout, true)
	go scan(stderr, false)
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		return out.String(), fmt.Errorf("failed to wait for %s: %w", c, err)
	}
	return out.String(), nil
}

// AllowedCommands returns the sorted allow list.
func AllowedCommands() []string {
	names := make([]string, 0, len(allowedCommands))
	for n := range allowedCommands {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
