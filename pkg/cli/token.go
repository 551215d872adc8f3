package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/platinummonkey/panelhub/pkg/auth"
)

func newTokenCommand() *Command {
	cmd := &Command{
		Name:        "token",
		Description: "Sign a bearer token for local development",
		Flags:       flag.NewFlagSet("token", flag.ContinueOnError),
	}

	cmd.Flags.Int64("user", 0, "User ID to embed in the token")
	cmd.Flags.String("role", string(auth.RoleUser), "Role claim (user or admin)")
	cmd.Flags.Duration("ttl", 12*time.Hour, "Token lifetime")
	cmd.Flags.String("secret", os.Getenv("PANELHUB_JWT_SECRET"), "HMAC secret (defaults to $PANELHUB_JWT_SECRET)")
	cmd.Flags.String("issuer", os.Getenv("PANELHUB_JWT_ISSUER"), "Issuer claim")

	cmd.Run = func(args []string) error {
		return runToken(cmd.Flags, args, os.Stdout)
	}
	return cmd
}

func runToken(flags *flag.FlagSet, args []string, out io.Writer) error {
	if err := flags.Parse(args); err != nil {
		return err
	}

	userID := flags.Lookup("user").Value.(flag.Getter).Get().(int64)
	role := auth.Role(flags.Lookup("role").Value.String())
	ttl := flags.Lookup("ttl").Value.(flag.Getter).Get().(time.Duration)
	secret := flags.Lookup("secret").Value.String()
	issuer := flags.Lookup("issuer").Value.String()

	if userID <= 0 {
		return errors.New("--user must be a positive user ID")
	}
	if !role.IsValid() {
		return fmt.Errorf("invalid role: %s", role)
	}
	if secret == "" {
		return errors.New("--secret or PANELHUB_JWT_SECRET is required")
	}
	if ttl <= 0 {
		return errors.New("--ttl must be positive")
	}

	token, err := auth.NewIssuer([]byte(secret), issuer).Issue(userID, role, ttl)
	if err != nil {
		return fmt.Errorf("failed to sign token: %w", err)
	}

	_, err = fmt.Fprintln(out, token)
	return err
}
