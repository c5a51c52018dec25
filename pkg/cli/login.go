package cli

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dsv-su/dsvgo/pkg/auth"
	"github.com/dsv-su/dsvgo/pkg/config"
	"github.com/dsv-su/dsvgo/pkg/dsv"
)

func newLoginCommand() *Command {
	cmd := &Command{
		Name:        "login",
		Description: "Verify the account and store the password in the keyring",
		Flags:       flag.NewFlagSet("login", flag.ExitOnError),
		Run:         runLogin,
	}

	cmd.Flags.String("username", "", "University account (defaults to DSV_USERNAME)")

	return cmd
}

func runLogin(args []string) error {
	cmd := newLoginCommand()
	if err := cmd.Flags.Parse(args); err != nil {
		return err
	}

	username := cmd.Flags.Lookup("username").Value.String()
	if username == "" {
		username = os.Getenv("DSV_USERNAME")
	}
	if username == "" {
		return fmt.Errorf("username is required")
	}

	password, err := readPassword(fmt.Sprintf("Password for %s: ", username))
	if err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("empty password")
	}

	// Run a real login before touching the keyring so a typo is caught
	// here and not on first use.
	ctx, cancel := commandContext()
	defer cancel()

	creds := auth.Credentials{Username: username, Password: password}
	client := dsv.New(creds)
	if _, err := client.Sessions().Acquire(ctx, creds, auth.ServiceDaisyStaff); err != nil {
		return fmt.Errorf("login check failed: %w", err)
	}

	if err := config.StorePassword(username, password); err != nil {
		return fmt.Errorf("failed to store password: %w", err)
	}

	fmt.Printf("Password for %s stored in the system keyring\n", username)
	return nil
}

// readPassword prompts without echo when stdin is a terminal, and falls
// back to a plain line read when it is a pipe.
func readPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(raw), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
