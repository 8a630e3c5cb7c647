package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// createInstallCompletionCommand creates the install-completion subcommand
func createInstallCompletionCommand() *cobra.Command {
	installCompletionCmd := &cobra.Command{
		Use:   "install-completion",
		Short: "Install shell completion script",
		Long: `Install shell completion script for Bash, Zsh, Fish, or PowerShell.
Automatically detects your shell and installs the appropriate completion script.`,
		Args: cobra.NoArgs,
		RunE: executeInstallCompletion,
	}

	installCompletionCmd.Flags().String("shell", "", "Specify shell type (bash, zsh, fish, powershell)")
	installCompletionCmd.Flags().Bool("force", false, "Force overwrite existing completion files")

	return installCompletionCmd
}

// detectShell guesses the shell from the environment.
func detectShell() (string, error) {
	shellEnv := os.Getenv("SHELL")
	if shellEnv == "" {
		// On Windows, we may not have $SHELL
		if os.Getenv("PSModulePath") != "" {
			return "powershell", nil
		}
		return "", fmt.Errorf("could not detect shell. Please specify with --shell flag")
	}
	switch {
	case strings.Contains(shellEnv, "bash"):
		return "bash", nil
	case strings.Contains(shellEnv, "zsh"):
		return "zsh", nil
	case strings.Contains(shellEnv, "fish"):
		return "fish", nil
	}
	return "", fmt.Errorf("unsupported shell: %s. Please specify shell with --shell flag", shellEnv)
}

// generateCompletion writes the completion script of root for shellType.
func generateCompletion(root *cobra.Command, shellType string, w io.Writer) error {
	switch shellType {
	case "bash":
		return root.GenBashCompletion(w)
	case "zsh":
		return root.GenZshCompletion(w)
	case "fish":
		return root.GenFishCompletion(w, true)
	case "powershell":
		return root.GenPowerShellCompletion(w)
	}
	return fmt.Errorf("unsupported shell type: %s", shellType)
}

// completionTarget returns where the completion script for shellType is
// installed below homeDir.
func completionTarget(shellType, homeDir string) string {
	switch shellType {
	case "bash":
		completionDir := filepath.Join(homeDir, ".bash_completion.d")
		// Optional system install if writable and explicitly requested
		// (e.g., export CEF_COMPOSER_COMPLETION_SCOPE=system)
		systemDir := "/etc/bash_completion.d"
		if os.Getenv("CEF_COMPOSER_COMPLETION_SCOPE") == "system" {
			if _, err := os.Stat(systemDir); err == nil && dirWritable(systemDir) {
				completionDir = systemDir
			}
		}
		return filepath.Join(completionDir, "cef-composer.bash")
	case "zsh":
		return filepath.Join(homeDir, ".zsh", "completion", "_cef-composer")
	case "fish":
		return filepath.Join(homeDir, ".config", "fish", "completions", "cef-composer.fish")
	case "powershell":
		return filepath.Join(homeDir, "Documents", "WindowsPowerShell", "cef-composer-completion.ps1")
	}
	return ""
}

// executeInstallCompletion handles installation of shell completion scripts
func executeInstallCompletion(cmd *cobra.Command, args []string) error {
	shellType, err := cmd.Flags().GetString("shell")
	if err != nil {
		return err
	}
	userForce, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if shellType == "" {
		if shellType, err = detectShell(); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := generateCompletion(cmd.Root(), shellType, &buf); err != nil {
		return fmt.Errorf("error generating %s completion: %w", shellType, err)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("could not determine home directory: %v", err)
	}
	targetPath := completionTarget(shellType, homeDir)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0700); err != nil {
		return fmt.Errorf("could not create directory %s: %v", filepath.Dir(targetPath), err)
	}

	if _, err := os.Stat(targetPath); err == nil && !userForce {
		return fmt.Errorf("completion file already exists at %s. Use --force to overwrite", targetPath)
	}

	if err := os.WriteFile(targetPath, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("could not write completion file: %v", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Shell completion installed for %s at %s\n", shellType, targetPath)
	fmt.Fprintf(out, "Source the file from your shell profile to activate it.\n")

	return nil
}

// dirWritable checks if the specified directory is writable by attempting to create and remove a temporary file.
func dirWritable(p string) bool {
	tf, err := os.CreateTemp(p, ".probe-*")
	if err != nil {
		return false
	}
	tf.Close()
	_ = os.Remove(tf.Name())
	return true
}
