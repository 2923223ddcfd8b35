package commands

import (
	"github.com/spf13/cobra"

	"github.com/amuthap/wedding-automation/internal/config"
)

var (
	configPath string
	cfg        *config.Config
)

// NewRootCmd builds the command tree. Every subcommand sees the loaded
// configuration in cfg.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "greetings",
		Short:         "Compose and send birthday and anniversary greetings over WhatsApp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(configPath)
			if err != nil {
				return err
			}
			loaded.SetupLogging()
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the TOML config file")

	root.AddCommand(greetCmd(), scrapeCmd(), serveCmd(), sendTestCmd())
	return root
}

func Execute() error {
	return NewRootCmd().Execute()
}
