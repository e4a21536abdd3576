// Package main is the cobot application entrypoint.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kaushalagrawal2/een1097-assignment2/internal"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/app/apps"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/app/cfg"
	"github.com/kaushalagrawal2/een1097-assignment2/internal/pkg/log"
)

// CLI command definitions.
var (
	logger logrus.FieldLogger = logrus.StandardLogger()

	rootCmd = &cobra.Command{
		Use:   "cobot",
		Short: "Cobot fleet hub and demo robot client.",
		RunE: func(*cobra.Command, []string) error {
			return nil
		},
	}

	clientCmd = &cobra.Command{
		Use:   "client [id [x y]]",
		Short: "Starts a demo robot client.",
		Args: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 0, 1:
				return nil
			case 3:
				for _, arg := range args[1:] {
					if _, err := strconv.ParseFloat(arg, 64); err != nil {
						return errors.Wrap(err, "parse coordinate argument failed")
					}
				}
				return nil
			default:
				return errors.New("accepts [id [x y]]")
			}
		},
		RunE: runCmd,
	}

	serverCmd = &cobra.Command{
		Use:   "server",
		Short: "Starts the cobot hub.",
		RunE:  runCmd,
	}
)

func newApp(_ context.Context, cmd *cobra.Command, args []string) (apps.App, []string, error) {
	var err error
	var app apps.App
	switch cmd.Name() {
	case "client":
		app, err = apps.NewClientApp(cfg.AddrFromEnv(), cfg.TelemetryFromEnv())
		if err != nil {
			return nil, nil, errors.Wrap(err, "new client app failed")
		}
		args = append([]string{cmd.Name()}, args...)
		return app, args, nil
	case "server":
		app, err = apps.NewServerApp(cfg.AddrFromEnv(), cfg.APIAddrFromEnv(), cfg.MonitorFromEnv())
		if err != nil {
			return nil, nil, errors.Wrap(err, "new server app failed")
		}
		args = append([]string{cmd.Name()}, args...)
		return app, args, nil
	default:
		return nil, nil, fmt.Errorf("unknown command: %s", cmd.Name())
	}
}

func runCmd(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := chainedCheck(
		ctx,
		envCheck,
	); err != nil {
		return errors.Wrap(err, "chained check failed")
	}
	app, args, err := newApp(cmd.Context(), cmd, args)
	if err != nil {
		return errors.Wrapf(err, "new %s app failed", cmd.Name())
	}
	return errors.Wrap(app.Run(ctx, args), "run app failed")
}

func envCheck(ctx context.Context) error {
	err := internal.ValidateEnv()
	if err != nil {
		return errors.Wrap(err, "validate env failed")
	}
	log.SetLogger(internal.LogLevel)
	if internal.LogFile != "" {
		log.SetOutput(internal.LogFile)
	}
	return nil
}

func chainedCheck(ctx context.Context, checks ...func(context.Context) error) error {
	for _, check := range checks {
		err := check(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func init() {
	err := internal.RegisterCommandFlags(rootCmd, []*internal.Flag{
		&internal.EnvFlag,
		&internal.LogLevelFlag,
		&internal.LogFileFlag,
		&internal.ConfigFlag,

		&internal.HostFlag,
		&internal.PortFlag,
	})
	if err != nil {
		logger.Fatalln(err)
	}

	err = internal.RegisterCommandFlags(clientCmd, []*internal.Flag{
		&internal.ClientTickerMSFlag,
		&internal.ClientKillswitchMSFlag,
	})
	if err != nil {
		logger.Fatalln(err)
	}

	err = internal.RegisterCommandFlags(serverCmd, []*internal.Flag{
		&internal.APIPortFlag,
		&internal.ServerTickerMSFlag,
	})
	if err != nil {
		logger.Fatalln(err)
	}

	rootCmd.AddCommand(
		clientCmd,
		serverCmd,
	)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Fatal(errors.Wrap(err, "execute root command failed"))
	}
}
