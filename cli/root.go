package cli

import (
	"github.com/njyeung/sprunki/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version is stamped at build time with -ldflags "-X github.com/njyeung/sprunki/cli.Version=..."
var Version = "dev"

// app is the state shared by every command
type app struct {
	configFile string
	verbose    bool
	v          *viper.Viper
	cfg        *config.Config
}

func (a *app) load() error {
	cfg, err := config.Load(a.v, a.configFile)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Log.Level = "debug"
	}
	a.cfg = cfg
	return nil
}

func New() *cobra.Command {
	a := &app{v: viper.New()}

	tui := NewTUICommand(a)
	cmd := &cobra.Command{
		Use:          "sprunki",
		Short:        "Sprunki game page and comments",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		RunE: tui.RunE,
	}
	cmd.Flags().AddFlagSet(tui.Flags())

	cmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "make output more verbose")
	cmd.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default is sprunki.yaml in . or $HOME/.sprunki)")

	cmd.AddCommand(
		NewVersionCommand(),
		tui,
		NewServeCommand(a),
		NewPlayCommand(a),
	)
	return cmd
}

func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("sprunki " + Version)
		},
	}
}
