package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/dsv-su/dsvgo/pkg/config"
)

func newLogoutCommand() *Command {
	cmd := &Command{
		Name:        "logout",
		Description: "Remove the stored password and clear cached sessions",
		Flags:       flag.NewFlagSet("logout", flag.ExitOnError),
		Run:         runLogout,
	}

	cmd.Flags.String("username", "", "University account (defaults to DSV_USERNAME)")

	return cmd
}

func runLogout(args []string) error {
	cmd := newLogoutCommand()
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

	ctx, cancel := commandContext()
	defer cancel()

	// Clear cached sessions first: a stale cache without a password is
	// more confusing than the other way around.
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	backend, err := config.NewCacheBackend(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	if err := backend.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session cache: %w", err)
	}

	if err := config.DeletePassword(username); err != nil {
		fmt.Printf("No keyring entry removed for %s: %v\n", username, err)
	} else {
		fmt.Printf("Removed keyring entry for %s\n", username)
	}
	fmt.Println("Cleared cached sessions")
	return nil
}
