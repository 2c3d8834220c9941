// Package confirm provides interactive prompts for the CLI.
package confirm

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/samsarahq/go/oops"
)

// Prompt asks for y/n confirmation from the user.
// Returns nil if confirmed, error if declined or on input failure.
func Prompt(message string) error {
	fmt.Printf("⚠️  %s [y/N]: ", message)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return oops.Wrapf(err, "failed to read confirmation")
	}

	response = strings.TrimSpace(strings.ToLower(response))
	if response != "y" && response != "yes" {
		return oops.Errorf("operation cancelled by user")
	}
	return nil
}

// Select asks the user to choose one of options by number, returning its
// index.
func Select(message string, options []string) (int, error) {
	fmt.Printf("❓ %s:\n", message)
	for i, option := range options {
		fmt.Printf("   %d) %s\n", i+1, option)
	}
	fmt.Printf("Enter choice [1-%d]: ", len(options))

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return 0, oops.Wrapf(err, "failed to read selection")
	}

	choice, err := strconv.Atoi(strings.TrimSpace(response))
	if err != nil || choice < 1 || choice > len(options) {
		return 0, oops.Errorf("invalid selection %q, expected a number between 1 and %d", strings.TrimSpace(response), len(options))
	}
	return choice - 1, nil
}

// Input asks the user for a free-text value.
func Input(message string) (string, error) {
	fmt.Printf("❓ %s: ", message)

	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return "", oops.Wrapf(err, "failed to read input")
	}
	return strings.TrimSpace(response), nil
}
