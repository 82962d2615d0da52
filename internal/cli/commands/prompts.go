package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"golang.org/x/term"
)

// interactive reports whether prompts can be shown. Tests turn it off.
var interactive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// promptValue fills value from an interactive prompt when it is empty.
// flagHint names the flag or env var to use in non-interactive mode.
func promptValue(value *string, label, flagHint string) error {
	if *value != "" {
		return nil
	}
	if !interactive() {
		return fmt.Errorf("%s is required in non-interactive mode (use %s)", strings.ToLower(label), flagHint)
	}

	prompt := promptui.Prompt{
		Label: label,
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return fmt.Errorf("%s cannot be empty", strings.ToLower(label))
			}
			return nil
		},
	}

	result, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	*value = strings.TrimSpace(result)
	return nil
}

// promptPassword reads a password without echo when it is empty
func promptPassword(out io.Writer, value *string, label, flagHint string) error {
	if *value != "" {
		return nil
	}
	if !interactive() {
		return fmt.Errorf("%s is required in non-interactive mode (use %s)", strings.ToLower(label), flagHint)
	}

	fmt.Fprintf(out, "%s: ", label)
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out) // New line after password input
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	*value = string(bytePassword)
	return nil
}

// envDefault fills value from the environment when it is empty
func envDefault(value *string, key string) {
	if *value == "" {
		*value = os.Getenv(key)
	}
}
