package cli

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
)

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
		Name:        "panelhub",
		Description: "PanelHub - comic platform identity and realtime service",
		Subcommands: make(map[string]*Command),
		Flags:       flag.NewFlagSet("panelhub", flag.ExitOnError),
	}

	// Add subcommands
	root.Subcommands["serve"] = newServeCommand()
	root.Subcommands["token"] = newTokenCommand()
	root.Subcommands["assign-quests"] = newAssignQuestsCommand()
	root.Subcommands["purge-unverified"] = newPurgeUnverifiedCommand()

	return root
}

// Execute runs the subcommand named by os.Args
func (c *Command) Execute() error {
	return c.execute(os.Args[1:])
}

func (c *Command) execute(args []string) error {
	if len(args) == 0 {
		return c.usage()
	}

	// Check for help flag
	if help := strings.ToLower(args[0]); help == "-h" || help == "--help" {
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

	names := make([]string, 0, len(c.Subcommands))
	for name := range c.Subcommands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %-18s %s\n", name, c.Subcommands[name].Description)
	}
	return nil
}
