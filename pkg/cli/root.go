package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/dsv-su/dsvgo/pkg/config"
	"github.com/dsv-su/dsvgo/pkg/dsv"
)

// commandTimeout bounds one CLI invocation end to end.
const commandTimeout = 2 * time.Minute

// Command represents a CLI command
type Command struct {
	Name        string
	Description string
	Run         func(args []string) error
	Subcommands map[string]*Command
	Flags       *flag.FlagSet
}

// NewRootCommand creates the root command
func NewRootCommand() *Command {
	root := &Command{
		Name:        "dsv",
		Description: "dsv - Stockholm University DSV services CLI",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("dsv", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["login"] = newLoginCommand()
	root.Subcommands["logout"] = newLogoutCommand()
	root.Subcommands["schedule"] = newScheduleCommand()
	root.Subcommands["staff"] = newStaffCommand()
	root.Subcommands["queue"] = newQueueCommand()
	root.Subcommands["placements"] = newPlacementsCommand()
	root.Subcommands["mail"] = newMailCommand()

	return root
}

// Execute runs the command
func (c *Command) Execute() error {
	args := os.Args[1:]
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if args[0] == "-h" || args[0] == "--help" {
		return c.usage()
	}

	// Check for subcommand
	if subcmd, ok := c.Subcommands[args[0]]; ok {
		return subcmd.Run(args[1:])
	}

	return fmt.Errorf("unknown command: %s", args[0])
}

// usage prints the command usage
func (c *Command) usage() error {
	fmt.Printf("Usage: %s <command> [args]\n\n", c.Name)
	fmt.Printf("Commands:\n")
	for name, cmd := range c.Subcommands {
		fmt.Printf("  %-15s %s\n", name, cmd.Description)
	}
	return nil
}

// commandContext returns the context shared by all subcommand runs.
func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

// newServiceClient builds the facade client from the environment.
func newServiceClient(ctx context.Context) (*dsv.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return dsv.FromConfig(ctx, cfg)
}
