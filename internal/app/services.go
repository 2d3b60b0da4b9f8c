package app

import (
	"fmt"
	"net/http"

	"github.com/LuckySilver0021/atom/internal/auth/credstore"
	"github.com/LuckySilver0021/atom/internal/auth/session"
	"github.com/LuckySilver0021/atom/internal/config"
	"github.com/LuckySilver0021/atom/internal/store/sqlite"
	"github.com/LuckySilver0021/atom/pkg/logging"
)

// Services bundles the long-lived components shared by all commands.
type Services struct {
	Credentials   *credstore.Store
	DB            *sqlite.DB
	Users         *sqlite.UserRepo
	Conversations *sqlite.ConversationRepo
	SessionAPI    *session.APIResolver
	Resolver      *session.CachingResolver
}

// InitializeServices opens the credential store and the database and wires
// the session resolver on top of them.
func InitializeServices(cfg config.AtomConfig) (*Services, error) {
	db, err := sqlite.NewDB(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", cfg.Database.Path, err)
	}
	logging.Debug("Services", "Opened database %s", db.Path())

	users := sqlite.NewUserRepo(db)
	api := session.NewAPIResolver(cfg.Server.URL, cfg.Server.SessionPath,
		session.WithHTTPClient(&http.Client{Timeout: cfg.Server.Timeout}))

	return &Services{
		Credentials:   credstore.New(cfg.CredentialFile()),
		DB:            db,
		Users:         users,
		Conversations: sqlite.NewConversationRepo(db),
		SessionAPI:    api,
		Resolver:      session.NewCachingResolver(users, api),
	}, nil
}

// Close releases the database.
func (s *Services) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
