package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/treecss/treecss/internal/config"
	"github.com/treecss/treecss/internal/css"
)

const (
	ERROR_STATUS_CODE = 1

	COMMAND_NAME = "treecss"
	CLI_LOG_SRC  = "cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	statusCode := _main(ctx, os.Args[1:], os.Stdout, os.Stderr)
	if statusCode != 0 {
		cancel()
		os.Exit(statusCode)
	}
}

// exitError makes _main return a status code without printing anything more.
type exitError struct {
	statusCode int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.statusCode)
}

func _main(ctx context.Context, args []string, outW io.Writer, errW io.Writer) (statusCode int) {
	rootCmd := newRootCommand(outW, errW)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	var exitErr exitError
	if errors.As(err, &exitErr) {
		return exitErr.statusCode
	}

	fmt.Fprintln(errW, err)
	return ERROR_STATUS_CODE
}

// cliState holds what the subcommands share, it is set up before any subcommand runs.
type cliState struct {
	outW, errW io.Writer

	configPath       string
	logLevel         string
	defaultNamespace string

	config       config.Config
	logger       zerolog.Logger
	colorProfile termenv.Profile
}

func newRootCommand(outW, errW io.Writer) *cobra.Command {
	state := &cliState{outW: outW, errW: errW}

	rootCmd := &cobra.Command{
		Use:           COMMAND_NAME,
		Short:         "Compile nested stylesheets and match them against element trees",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.init(cmd)
		},
	}

	rootCmd.SetOut(outW)
	rootCmd.SetErr(errW)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&state.configPath, "config", "", "configuration file (default: "+config.CONFIG_FILE_RELPATH+" in the XDG config directories)")
	flags.StringVar(&state.logLevel, "log-level", "", "log level: trace, debug, info, warn, error")
	flags.StringVar(&state.defaultNamespace, "default-namespace", "", "namespace URI of unqualified types")

	rootCmd.AddCommand(
		newCompileCommand(state),
		newMatchCommand(state),
		newWatchCommand(state),
	)

	return rootCmd
}

func (s *cliState) init(cmd *cobra.Command) error {
	var err error

	if s.configPath != "" {
		s.config, err = config.LoadFile(s.configPath)
	} else {
		s.config, _, err = config.Load()
	}
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		s.config.LogLevel = s.logLevel
	}
	if cmd.Flags().Changed("default-namespace") {
		s.config.DefaultNamespace = s.defaultNamespace
	}
	if err := s.config.Validate(); err != nil {
		return err
	}

	s.colorProfile = config.ColorProfile(termenv.NewOutput(s.errW), os.LookupEnv)

	s.logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     s.errW,
		NoColor: s.colorProfile == termenv.Ascii,
	}).Level(s.config.ZerologLevel()).With().Timestamp().Logger()

	return nil
}

// newCompiler returns a compiler that reads the stylesheets from the OS filesystem.
func (s *cliState) newCompiler() *css.Compiler {
	return css.NewCompiler(css.CompilerConfig{
		TextProvider:     css.FilesystemTextProvider{FS: osfs.New("/")},
		DefaultNamespace: s.config.DefaultNamespace,
		Logger:           s.logger,
	})
}

// stylesheetPath returns the absolute, slash-separated path the text provider expects.
func stylesheetPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(absPath), nil
}
