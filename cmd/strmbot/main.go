// Command strmbot runs the .strm Telegram bot.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/prilive-com/strmbot/internal/config"
)

var version = "v2.4"

func main() {
	os.Exit(runCLI(os.Args[1:], os.Stderr))
}

// runCLI executes the command line and returns the process exit code.
// Errors are printed once, here, since cobra's own printing is silenced.
func runCLI(args []string, stderr io.Writer) int {
	cmd := newRootCmd()
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(stderr, "strmbot:", err)
		return 1
	}
	return 0
}

// app carries the resolved configuration from the root command to its
// subcommands.
type app struct {
	configFile string
	viper      *viper.Viper
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "strmbot",
		Short:         "Telegram bot that turns messages into .strm files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd.Flags())
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file path (default: .env in the working directory, if present)")
	flags.String("folder", "", "target folder name or path (FOLDER_NAME)")
	flags.String("base-dir", "", "base directory for a relative folder (BASE_DIR)")
	flags.String("proxy", "", "proxy URL for Bot API calls (HTTP_PROXY)")
	flags.Int("workers", 0, "messages handled concurrently (WORKERS)")
	flags.Int64("admin-chat", 0, "chat that receives the startup notice (ADMIN_CHAT_ID)")
	flags.String("log-level", "", "debug, info, warn or error (LOG_LEVEL)")
	flags.String("log-format", "", "text or json (LOG_FORMAT)")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newWriteCmd(a))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

var flagKeys = map[string]string{
	"folder":     config.KeyFolderName,
	"base-dir":   config.KeyBaseDir,
	"proxy":      config.KeyHTTPProxy,
	"workers":    config.KeyWorkers,
	"admin-chat": config.KeyAdminChatID,
	"log-level":  config.KeyLogLevel,
	"log-format": config.KeyLogFormat,
}

func (a *app) load(flags *pflag.FlagSet) error {
	v, err := config.NewViper(a.configFile, ".")
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		// Only flags given on the command line override env and files.
		if f := flags.Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.viper = v
	a.cfg = cfg
	return nil
}
