package cli

import (
	"context"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/njyeung/sprunki/backend"
	"github.com/njyeung/sprunki/config"
	"github.com/njyeung/sprunki/fullscreen"
	"github.com/njyeung/sprunki/game"
	"github.com/njyeung/sprunki/logging"
	"github.com/njyeung/sprunki/page"
	"github.com/njyeung/sprunki/tui"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewTUICommand(a *app) *cobra.Command {
	var withGame, headed bool

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "browse, rate and reply to comments in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), a.cfg, withGame, !headed)
		},
	}
	cmd.Flags().BoolVar(&withGame, "game", false, "also open the game page so fullscreen toggles drive it")
	cmd.Flags().BoolVar(&headed, "headed", false, "show the game browser window")
	return cmd
}

func runTUI(ctx context.Context, cfg *config.Config, withGame, headless bool) error {
	if ctx == nil {
		ctx = context.Background()
	}

	// the terminal belongs to the UI, so logs only go to a file
	logger, closeLog, err := logging.NewFile(cfg.Log.Dir, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer closeLog()
	defer logger.Sync()

	flags, closeFlags, err := openFlags(ctx, cfg, logger)
	if err != nil {
		return errors.Wrap(err, "open like flags")
	}
	defer closeFlags()

	api := backend.NewClient(cfg.APIBase, backend.WithLogger(logger.Named("api")))
	toasts := tui.NewToastQueue()
	ctrl := page.New(api, page.Options{
		ArticleURL: cfg.ArticleURL,
		Sort:       cfg.UI.Sort,
		Flags:      flags,
		RetryDelay: cfg.UI.RetryDelay,
		Notifier:   toasts,
		Logger:     logger.Named("page"),
	})

	opts := tui.Options{
		Controller: ctrl,
		Toasts:     toasts,
		Device:     fullscreen.DetectDevice(cfg.UserAgent),
		Debounce:   cfg.UI.Debounce,
		Logger:     logger.Named("tui"),
	}

	var chrome *game.ChromePage
	if withGame {
		chrome = game.NewChromePage(game.Options{
			URL:         cfg.GameURL,
			UserAgent:   cfg.UserAgent,
			UserDataDir: filepath.Join(config.Dir(), "chrome-data"),
			Logger:      logger.Named("game"),
		})
		if err := chrome.Start(headless); err != nil {
			chrome.Stop()
			return err
		}
		if err := chrome.Play(opts.Device); err != nil {
			logger.Warn("game did not start", zap.Error(err))
		}
		opts.Game = chrome
		opts.OnQuit = chrome.Stop
	}

	model := tui.NewModel(ctx, opts)
	if chrome != nil {
		go game.Drive(chrome.Events(), model.Machine(), logger.Named("game"))
	}

	logger.Info("tui starting", zap.String("article", cfg.ArticleURL), zap.String("api", cfg.APIBase))
	if _, err := tea.NewProgram(model, tea.WithContext(ctx)).Run(); err != nil {
		return errors.Wrap(err, "tui")
	}
	return nil
}
