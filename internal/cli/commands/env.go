package commands

import (
	"context"
	"fmt"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lvyanru/chatctl/internal/cli/chat"
	"github.com/lvyanru/chatctl/internal/cli/client"
	"github.com/lvyanru/chatctl/internal/cli/config"
	"github.com/lvyanru/chatctl/internal/cli/notify"
	"github.com/lvyanru/chatctl/internal/cli/session"
	"github.com/lvyanru/chatctl/internal/cli/ui"
	"github.com/lvyanru/chatctl/internal/domain"
	"github.com/lvyanru/chatctl/pkg/logger"
)

// env is everything a command needs, built from config and global flags
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  session.Backend
	api    *client.APIClient
	notes  *notify.Presenter
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		ui.PrintError("failed to load config: %v", err)
		return nil, fmt.Errorf("config load failed")
	}
	if flagServer != "" {
		cfg.Server = flagServer
		if err := cfg.Validate(); err != nil {
			ui.PrintError("%v", err)
			return nil, fmt.Errorf("invalid server")
		}
	}
	if flagVerbose {
		cfg.Log.Level = "debug"
	}

	log, err := logger.Setup(cfg.Log)
	if err != nil {
		ui.PrintError("failed to set up logging: %v", err)
		return nil, fmt.Errorf("logger setup failed")
	}
	hlog.SetLogger(logger.NewHertzZapAdapter(log))
	log.Debug("config loaded",
		zap.String("source", cfg.Source()),
		zap.String("server", cfg.Server),
		zap.String("command", cmd.CommandPath()))

	store, err := session.Open(cfg.Session, log)
	if err != nil {
		ui.PrintError("failed to open session store: %v", err)
		return nil, fmt.Errorf("session store unavailable")
	}

	api, err := client.NewAPIClient(cfg.Server,
		client.WithResponseTimeout(cfg.Chat.ResponseTimeout),
		client.WithPreferStream(cfg.Chat.PreferStream),
		client.WithLogger(log),
	)
	if err != nil {
		store.Close()
		ui.PrintError("failed to create client: %v", err)
		return nil, fmt.Errorf("client creation failed")
	}

	notes := notify.NewPresenter(api, cfg.UI.ToastDuration, log)
	notes.OnToast = ui.PrintToast

	return &env{cfg: cfg, logger: log, store: store, api: api, notes: notes}, nil
}

func (e *env) Close() {
	if err := e.store.Close(); err != nil {
		e.logger.Warn("failed to close session store", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// requireSession loads the stored session or tells the user to log in
func (e *env) requireSession(ctx context.Context) (*session.Session, error) {
	sess, err := e.store.Load(ctx)
	if err != nil {
		ui.PrintError("failed to read session: %v", err)
		return nil, fmt.Errorf("session load failed")
	}
	if sess == nil {
		ui.PrintError("not logged in")
		fmt.Println("\nRun 'chatctl login' to authenticate.")
		return nil, domain.ErrNotLoggedIn
	}
	return sess, nil
}

// controller builds the chat controller around sess; nav may be nil
func (e *env) controller(sess *session.Session, nav chat.Navigator, observer func(chat.Event)) *chat.Controller {
	return chat.New(sess, e.api, e.store, e.notes, nav, chat.Options{
		IdleTimeout: e.cfg.Chat.IdleTimeout,
		Logger:      e.logger,
		Observer:    observer,
	})
}

// expired handles a 401 outside the controller: forget the session and say so
func (e *env) expired(ctx context.Context, err error) {
	if !domain.IsAuthExpired(err) {
		return
	}
	if cerr := e.store.Clear(context.WithoutCancel(ctx)); cerr != nil {
		e.logger.Error("failed to clear session", zap.Error(cerr))
	}
	ui.PrintWarning("%s", chat.MsgSessionExpired)
	loginHint{}.ToLogin("401")
}

// loginHint is the console Navigator: it can only point at the login command
type loginHint struct{}

func (loginHint) ToLogin(string) {
	fmt.Println("\nRun 'chatctl login' to sign in again.")
}
