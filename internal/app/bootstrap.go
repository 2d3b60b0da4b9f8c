package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/LuckySilver0021/atom/internal/auth/credstore"
	"github.com/LuckySilver0021/atom/internal/auth/device"
	"github.com/LuckySilver0021/atom/internal/auth/session"
	"github.com/LuckySilver0021/atom/internal/chat"
	"github.com/LuckySilver0021/atom/internal/cli"
	"github.com/LuckySilver0021/atom/internal/config"
	"github.com/LuckySilver0021/atom/internal/gateway"
	"github.com/LuckySilver0021/atom/pkg/logging"
)

// Application owns the configuration and services of one atom invocation.
type Application struct {
	config   *Config
	services *Services
	closeLog func() error
}

// NewApplication configures logging, loads and validates the configuration
// and initializes the services.
func NewApplication(cfg *Config) (*Application, error) {
	logOutput := cfg.LogOutput
	if logOutput == nil {
		logOutput = os.Stderr
	}

	// Bootstrap logger, replaced once the configured level is known.
	bootLevel := logging.LevelWarn
	if cfg.Debug {
		bootLevel = logging.LevelDebug
	}
	logging.InitForCLI(bootLevel, logOutput)

	if cfg.AtomConfig == nil {
		atomCfg, err := config.LoadConfig(cfg.ConfigPath)
		if err != nil {
			logging.Error("Bootstrap", err, "Failed to load configuration from %s", cfg.ConfigPath)
			return nil, fmt.Errorf("failed to load configuration from %s: %w", cfg.ConfigPath, err)
		}
		cfg.AtomConfig = &atomCfg
	}

	closeLog, err := configureLogging(cfg, logOutput)
	if err != nil {
		return nil, err
	}

	if err := cfg.AtomConfig.Validate(); err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	services, err := InitializeServices(*cfg.AtomConfig)
	if err != nil {
		logging.Error("Bootstrap", err, "Failed to initialize services")
		_ = closeLog()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	return &Application{
		config:   cfg,
		services: services,
		closeLog: closeLog,
	}, nil
}

// configureLogging applies the configured level and log file. --debug wins
// over the configured level.
func configureLogging(cfg *Config, output io.Writer) (func() error, error) {
	level, err := logging.ParseLevel(cfg.AtomConfig.Logging.Level)
	if err != nil {
		logging.Warn("Bootstrap", "%v, using %s", err, level)
	}
	if cfg.Debug {
		level = logging.LevelDebug
	}

	if cfg.AtomConfig.Logging.File != "" {
		closeFn, err := logging.InitForFile(level, cfg.AtomConfig.Logging.File)
		if err != nil {
			return nil, err
		}
		return closeFn, nil
	}

	logging.InitForCLI(level, output)
	return func() error { return nil }, nil
}

// Config returns the loaded atom configuration.
func (a *Application) Config() config.AtomConfig {
	return *a.config.AtomConfig
}

// Services returns the initialized services.
func (a *Application) Services() *Services {
	return a.services
}

// Close releases the services and the log file.
func (a *Application) Close() error {
	return errors.Join(a.services.Close(), a.closeLog())
}

// DeviceClient creates a device authorization client for the configured server.
func (a *Application) DeviceClient(opts ...device.ClientOption) *device.Client {
	cfg := a.Config()
	opts = append([]device.ClientOption{
		device.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout}),
	}, opts...)
	return device.NewClient(device.Config{
		ServerURL:      cfg.Server.URL,
		DeviceCodePath: cfg.Server.DeviceCodePath,
		TokenPath:      cfg.Server.TokenPath,
	}, opts...)
}

// RequireUser returns the stored credential and the user it belongs to.
// It fails with *cli.AuthRequiredError when nobody is logged in and with
// *cli.AuthExpiredError when the credential or its session is no longer valid.
func (a *Application) RequireUser(ctx context.Context) (*credstore.Credential, *session.User, error) {
	cred, ok, err := a.services.Credentials.LoadValid()
	if err != nil {
		return nil, nil, err
	}
	if cred == nil {
		return nil, nil, &cli.AuthRequiredError{}
	}
	if !ok {
		expiry, _ := cred.Expiry()
		return nil, nil, &cli.AuthExpiredError{ExpiredAt: expiry}
	}

	user, err := a.services.Resolver.ResolveUser(ctx, cred.AccessToken)
	if err != nil {
		return nil, nil, a.connectionError(err)
	}
	if user == nil {
		return nil, nil, &cli.AuthExpiredError{}
	}

	logging.Debug("Bootstrap", "Resolved user %s", user.ID)
	return cred, user, nil
}

// connectionError classifies transport failures against the identity provider.
func (a *Application) connectionError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return cli.ClassifyConnectionError(err, a.Config().Server.URL)
	}
	return err
}

// NewController builds the chat controller: the configured model gateway,
// the context assembler and the conversation repository.
func (a *Application) NewController(opts ...gateway.Option) (*chat.Controller, gateway.Gateway, error) {
	cfg := a.Config()
	if err := cfg.ValidateModel(); err != nil {
		return nil, nil, fmt.Errorf("invalid model configuration: %w", err)
	}

	gw, err := gateway.New(cfg.Model, opts...)
	if err != nil {
		return nil, nil, err
	}

	assemblerOpts := []chat.AssemblerOption{chat.WithContextMessages(cfg.Chat.ContextMessages)}
	if cfg.Chat.SummaryTemplate != "" {
		assemblerOpts = append(assemblerOpts, chat.WithSummaryTemplate(cfg.Chat.SummaryTemplate))
	}
	assembler, err := chat.NewAssembler(a.services.Conversations, assemblerOpts...)
	if err != nil {
		return nil, nil, err
	}

	controller := chat.NewController(a.services.Conversations, assembler, gw,
		chat.WithTitleLength(cfg.Chat.TitleLength),
		chat.WithPersistPartial(cfg.Chat.PersistPartial),
	)
	logging.Info("Bootstrap", "Using %s model %s", gw.Provider(), gw.Model())
	return controller, gw, nil
}
