// rogue-dhcp - rogue DHCP server detector
//
// Compares the DHCP servers a network controller has observed against a
// file of trusted server addresses, and mails an alert listing every
// server that is not trusted.
//
// Usage:
//
//	rogue-dhcp [flags] <trusted-dhcp-file>
//
// The trusted file holds whitespace-separated IP addresses or CIDR
// prefixes; '#' starts a comment. Controller and mail relay settings come
// from the config file (-c, default /etc/rogue-dhcp/config.yaml) and
// ROGUE_DHCP_* environment variables.
//
// Examples:
//
//	rogue-dhcp trusted-dhcp-servers.txt
//	rogue-dhcp -c lab.yaml --dry-run trusted.txt     # report, do not mail
//	rogue-dhcp --json trusted.txt | jq .rogue
//	rogue-dhcp history list --last 24h --rogue
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/newtron-network/rogue-dhcp/pkg/config"
	"github.com/newtron-network/rogue-dhcp/pkg/settings"
	"github.com/newtron-network/rogue-dhcp/pkg/util"
	"github.com/newtron-network/rogue-dhcp/pkg/version"
)

const usageText = `Usage:   rogue-dhcp <trusted-dhcp-file>
Example: rogue-dhcp trusted-dhcp-servers.txt
`

// errUsage is returned after the usage text was printed; main exits 1
// without printing it again.
var errUsage = errors.New("missing trusted-dhcp-file argument")

var (
	configPath string
	verbose    bool
	dryRun     bool
	jsonOutput bool

	userSettings *settings.Settings
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "rogue-dhcp <trusted-dhcp-file>",
	Short:             "Detect rogue DHCP servers seen by the network controller",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `rogue-dhcp logs in to the network controller, fetches the DHCP servers it
has observed and compares them with the trusted list. Any server not on the
list is reported by mail to the configured recipients.`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		util.SetLogOutput(cmd.ErrOrStderr())

		var err error
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		// Quiet by default, verbose on -v. The config may raise it later.
		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel(config.DefaultLogLevel)
		}
		return nil
	},
	RunE: runCheck,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default "+config.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")

	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report rogue servers without sending mail")
	rootCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the result as JSON")

	rootCmd.AddCommand(settingsCmd, historyCmd, configCmd, versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Fprintln(cmd.OutOrStdout(), "rogue-dhcp dev build (no version ldflags set)")
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "rogue-dhcp %s\n", version.Info())
		}
	},
}

// loadConfig reads the config selected by -c, the settings file, or the
// default path, in that order.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" && userSettings != nil {
		path = userSettings.GetConfigPath()
	}
	if path == "" {
		path = config.DefaultPath
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if !verbose && cfg.Log.Level != "" {
		if err := util.SetLogLevel(cfg.Log.Level); err != nil {
			return nil, fmt.Errorf("log.level %q: %w", cfg.Log.Level, util.ErrInvalidConfig)
		}
	}
	if cfg.Log.Format == "json" {
		util.SetJSONFormat()
	}
	return cfg, nil
}
