package main

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jrsteele09/go-judge-client/api"
	"github.com/jrsteele09/go-judge-client/auth"
	"github.com/jrsteele09/go-judge-client/clilogin"
	"github.com/jrsteele09/go-judge-client/internal/utils"
	"github.com/jrsteele09/go-judge-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
)

const loginTimeout = 5 * time.Minute

// boot runs one orchestration cycle for the command's navigation event
// and returns the resulting session.
func boot(ctx context.Context, app *appContext) (auth.State, session.Session) {
	state, err := app.orchestrator.Cycle(ctx, url.Values{})
	if err != nil {
		log.Debug().Err(err).Msg("Orchestration cycle ended with an error")
	}
	return state, app.sessions.Get()
}

// requireSession boots and fails the command unless an authenticated or
// single-user session came out of it.
func requireSession(ctx context.Context, app *appContext) (session.Session, error) {
	_, current := boot(ctx, app)
	if !current.Authenticated() {
		return session.Session{}, errors.New("not logged in, run `judge login` first")
	}
	return current, nil
}

func loginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "authenticate against the platform",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "provider", Aliases: []string{"p"}, Usage: "identity provider to log in with"},
		},
		Action: func(c *cli.Context) error {
			app, err := setup()
			if err != nil {
				return err
			}
			displayAppname(app.config.GetAppName())

			state, current := boot(c.Context, app)
			if current.Authenticated() {
				if state == auth.StateSingleUser {
					fmt.Println("Single-user mode is enabled, no login required.")
					return nil
				}
				fmt.Printf("Already logged in as %s via %s.\n", utils.Value(current.Subject), utils.Value(current.Provider))
				return nil
			}

			provider, err := chooseProvider(c.Context, app, c.String("provider"))
			if err != nil {
				return err
			}

			listener, err := clilogin.Listen(app.config.GetCallbackAddr())
			if err != nil {
				return errors.Wrap(err, "starting the callback listener")
			}
			defer listener.Close()

			if err := app.orchestrator.BeginLogin(c.Context, provider); err != nil {
				return errors.Wrap(err, "starting the login flow")
			}

			waitCtx, cancel := context.WithTimeout(c.Context, loginTimeout)
			defer cancel()
			query, err := listener.Wait(waitCtx)
			if err != nil {
				return errors.Wrap(err, "waiting for the provider callback")
			}

			state, err = app.orchestrator.Cycle(c.Context, query)
			if err != nil {
				log.Debug().Err(err).Msg("Login cycle failed")
			}
			if state != auth.StateAuthenticated {
				return errors.New("login did not complete, please retry")
			}

			current = app.sessions.Get()
			fmt.Printf("Logged in as %s via %s.\n", utils.Value(current.Subject), utils.Value(current.Provider))
			return nil
		},
	}
}

// chooseProvider resolves the provider to log in with: the flag value
// when given, otherwise the backend's only enabled provider, otherwise
// an error listing the choices.
func chooseProvider(ctx context.Context, app *appContext, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	providers, err := app.client.Providers(ctx)
	if err != nil {
		return "", errors.Wrap(err, "listing providers")
	}
	switch len(providers) {
	case 0:
		return "", errors.New("the backend has no enabled identity providers")
	case 1:
		return providers[0], nil
	default:
		return "", errors.Errorf("multiple providers available (%v), pick one with --provider", providers)
	}
}

func logoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "discard the current session",
		Action: func(c *cli.Context) error {
			app, err := setup()
			if err != nil {
				return err
			}
			app.orchestrator.Logout()
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func whoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "show the current session",
		Action: func(c *cli.Context) error {
			app, err := setup()
			if err != nil {
				return err
			}
			state, current := boot(c.Context, app)
			fmt.Printf("state:    %s\n", state)
			fmt.Printf("status:   %s\n", current.Status())
			if current.Authenticated() {
				fmt.Printf("subject:  %s\n", utils.Value(current.Subject))
				fmt.Printf("provider: %s\n", utils.Value(current.Provider))
			}
			return nil
		},
	}
}

func providersCommand() *cli.Command {
	return &cli.Command{
		Name:  "providers",
		Usage: "list the enabled identity providers",
		Action: func(c *cli.Context) error {
			app, err := setup()
			if err != nil {
				return err
			}
			providers, err := app.client.Providers(c.Context)
			if err != nil {
				return err
			}
			for _, provider := range providers {
				fmt.Println(provider)
			}
			return nil
		},
	}
}

func challengesCommand() *cli.Command {
	return &cli.Command{
		Name:  "challenges",
		Usage: "list the published challenges",
		Action: func(c *cli.Context) error {
			app, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireSession(c.Context, app); err != nil {
				return err
			}
			challenges, err := app.client.Challenges(c.Context)
			if err != nil {
				return err
			}
			for _, challenge := range challenges {
				fmt.Printf("%-24s %s (%d stages)\n", challenge.FolderName, challenge.Basic.Title, len(challenge.Stages))
			}
			return nil
		},
	}
}

func challengeCommand() *cli.Command {
	return &cli.Command{
		Name:      "challenge",
		Usage:     "show one challenge",
		ArgsUsage: "<folder-name>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one challenge folder name")
			}
			app, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireSession(c.Context, app); err != nil {
				return err
			}
			challenge, err := app.client.Challenge(c.Context, c.Args().First())
			if err != nil {
				return err
			}
			fmt.Printf("%s by %s\n", challenge.Basic.Title, challenge.Basic.Author)
			for _, line := range challenge.Basic.Description {
				fmt.Println(line)
			}
			fmt.Println("\nStages:")
			for i, stage := range challenge.Stages {
				fmt.Printf("  %2d. %s\n", i+1, stage.Name)
			}
			return nil
		},
	}
}

func repositoriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "repositories",
		Usage: "list your practice repositories",
		Action: func(c *cli.Context) error {
			app, err := setup()
			if err != nil {
				return err
			}
			current, err := requireSession(c.Context, app)
			if err != nil {
				return err
			}
			repositories, err := app.client.Repositories(c.Context, utils.Value(current.Subject), utils.Value(current.Provider))
			if err != nil {
				return err
			}
			for _, repository := range repositories {
				fmt.Printf("%-36s %-24s stage %d/%d\n",
					repository.RepositoryID, repository.ChallengeFolderName, repository.Stage, repository.TotalStages)
			}
			return nil
		},
	}
}

func testingsCommand() *cli.Command {
	return &cli.Command{
		Name:      "testings",
		Usage:     "list the test runs for a repository",
		ArgsUsage: "<repository-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "stage", Usage: "only runs for this stage", Value: -1},
			&cli.IntFlag{Name: "serial", Usage: "show one run, with its log", Value: -1},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return errors.New("expected exactly one repository id")
			}
			app, err := setup()
			if err != nil {
				return err
			}
			if _, err := requireSession(c.Context, app); err != nil {
				return err
			}
			repositoryID := c.Args().First()

			if serial := c.Int("serial"); serial >= 0 {
				run, err := app.client.Testing(c.Context, repositoryID, int32(serial))
				if err != nil {
					return err
				}
				fmt.Printf("#%d stage %d %s %s\n", run.Serial, run.Stage, run.Status, run.Message)
				if run.Log != "" {
					fmt.Println(run.Log)
				}
				return nil
			}

			var testings []api.Testing
			if stage := c.Int("stage"); stage >= 0 {
				testings, err = app.client.TestingsByStage(c.Context, repositoryID, int32(stage))
			} else {
				testings, err = app.client.TestingsByRepository(c.Context, repositoryID)
			}
			if err != nil {
				return err
			}
			for _, testing := range testings {
				fmt.Printf("#%-4d stage %-3d %-10s %s\n", testing.Serial, testing.Stage, testing.Status, testing.Message)
			}
			return nil
		},
	}
}
