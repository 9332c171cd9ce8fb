package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/ibrahim-sisar/edulite-cli/internal/api"
	"github.com/ibrahim-sisar/edulite-cli/internal/app"
	"github.com/ibrahim-sisar/edulite-cli/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "edulite",
		Usage: "EduLite command-line client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: app.DefaultConfigLogLevel,
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: string(app.DefaultConfigLogFormat),
			},
			&cli.StringFlag{
				Name:  "api--base-url",
				Usage: "EduLite server base URL",
				Value: app.DefaultConfigAPIBaseURL,
			},
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "credential storage backend (file|keyring|memory)",
				Value: string(app.DefaultConfigAuthStorage),
			},
			&cli.StringFlag{
				Name:  "auth--file",
				Usage: "credential file path (file storage only)",
			},
		},
		Commands: []*cli.Command{
			loginCommand(),
			logoutCommand(),
			registerCommand(),
			whoamiCommand(),
			coursesCommand(),
			healthCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// setup loads configuration, installs logging, and builds the application.
func setup(ctx context.Context, cmd *cli.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.SlogLevel(), string(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}
	return application, nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "authenticate and store a credential pair",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "account username",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "account password (prompted when omitted)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = observability.Shutdown(ctx) }()

			password := cmd.String("password")
			if password == "" {
				password, err = promptPassword("Password: ")
				if err != nil {
					return err
				}
			}

			if err := application.Login(ctx, cmd.String("username"), password); err != nil {
				return err
			}
			fmt.Printf("Logged in as %s\n", cmd.String("username"))
			return nil
		},
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "discard the stored credential pair",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = observability.Shutdown(ctx) }()

			if err := application.Logout(ctx); err != nil {
				return err
			}
			fmt.Println("Logged out")
			return nil
		},
	}
}

func registerCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "create a new account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "username",
				Aliases:  []string{"u"},
				Usage:    "desired username",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "account email address",
				Required: true,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = observability.Shutdown(ctx) }()

			password, err := promptPassword("Password: ")
			if err != nil {
				return err
			}
			confirm, err := promptPassword("Confirm password: ")
			if err != nil {
				return err
			}

			err = application.API.Register(ctx, api.RegisterRequest{
				Username:  cmd.String("username"),
				Email:     cmd.String("email"),
				Password:  password,
				Password2: confirm,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Registered %s; you can now log in\n", cmd.String("username"))
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the authenticated user",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = observability.Shutdown(ctx) }()

			if !application.LoggedIn(ctx) {
				return fmt.Errorf("not logged in")
			}

			user, err := application.API.CurrentUser(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("%s <%s>\n", user.Username, user.Email)
			return nil
		},
	}
}

func coursesCommand() *cli.Command {
	return &cli.Command{
		Name:  "courses",
		Usage: "list courses",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = observability.Shutdown(ctx) }()

			courses, err := application.API.Courses(ctx)
			if err != nil {
				return err
			}
			if len(courses) == 0 {
				fmt.Println("No courses found")
				return nil
			}
			for _, course := range courses {
				fmt.Printf("%d\t%s\t%s\t%s\n", course.ID, course.Title, course.Subject, course.Visibility)
			}
			return nil
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check that the server is reachable and healthy",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			application, err := setup(ctx, cmd)
			if err != nil {
				return err
			}
			defer func() { _ = observability.Shutdown(ctx) }()

			if err := application.API.Health(ctx); err != nil {
				return err
			}
			fmt.Println("Server is healthy")
			return nil
		},
	}
}

// promptPassword reads a password from the terminal without echo. Falls
// back to plain reading when stdin is not a terminal (piped input).
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)

	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		defer fmt.Fprintln(os.Stderr)
		raw, err := term.ReadPassword(fd)
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}

	var password string
	if _, err := fmt.Fscanln(os.Stdin, &password); err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}
