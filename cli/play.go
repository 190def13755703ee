package cli

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/njyeung/sprunki/config"
	"github.com/njyeung/sprunki/fullscreen"
	"github.com/njyeung/sprunki/game"
	"github.com/njyeung/sprunki/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewPlayCommand(a *app) *cobra.Command {
	var (
		headless bool
		ios      bool
		mode     string
	)

	cmd := &cobra.Command{
		Use:   "play",
		Short: "open the game page in Chrome and start the game",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseMode(mode)
			if err != nil {
				return err
			}
			logger, closeLog, err := logging.NewConsole(a.cfg.Log.Dir, a.cfg.Log.Level)
			if err != nil {
				return err
			}
			defer closeLog()
			defer logger.Sync()
			return play(a.cfg, logger, headless, ios, target)
		},
	}
	cmd.Flags().BoolVar(&headless, "headless", false, "run Chrome without a window")
	cmd.Flags().BoolVar(&ios, "ios", false, "emulate an iPhone")
	cmd.Flags().StringVar(&mode, "fullscreen", "", "enter a fullscreen mode after start: pseudo, native or ios")
	return cmd
}

func parseMode(s string) (fullscreen.Mode, error) {
	switch s {
	case "":
		return fullscreen.Normal, nil
	case "pseudo":
		return fullscreen.Pseudo, nil
	case "native":
		return fullscreen.Native, nil
	case "ios":
		return fullscreen.IOS, nil
	}
	return fullscreen.Normal, errors.Errorf("unknown fullscreen mode %q", s)
}

func play(cfg *config.Config, logger *zap.Logger, headless, ios bool, mode fullscreen.Mode) error {
	chrome := game.NewChromePage(game.Options{
		URL:         cfg.GameURL,
		UserAgent:   cfg.UserAgent,
		UserDataDir: filepath.Join(config.Dir(), "chrome-data"),
		Logger:      logger.Named("game"),
	})
	defer chrome.Stop()

	if err := chrome.Start(headless); err != nil {
		return err
	}
	if ios {
		if err := chrome.EmulateIOS(); err != nil {
			return err
		}
	}

	ua, err := chrome.UserAgent()
	if err != nil {
		return err
	}
	device := fullscreen.DetectDevice(ua)
	machine := fullscreen.New(chrome, device, fullscreen.Options{
		Debounce: cfg.UI.Debounce,
		Logger:   logger.Named("fullscreen"),
	})
	go game.Drive(chrome.Events(), machine, logger)

	if err := chrome.Play(device); err != nil {
		return err
	}
	machine.SetStarted(true)
	logger.Info("game started", zap.Stringer("device", device))

	if mode != fullscreen.Normal {
		if err := machine.Enter(mode); err != nil {
			logger.Warn("fullscreen not entered", zap.Stringer("mode", mode), zap.Error(err))
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	if err := machine.ForceNormal(fullscreen.ReasonQuit); err != nil {
		logger.Warn("fullscreen exit failed", zap.Error(err))
	}
	return nil
}
