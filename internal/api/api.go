package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/susu3304/lootsplit/internal/config"
	"github.com/susu3304/lootsplit/internal/db"
	"github.com/susu3304/lootsplit/internal/hunt"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Store is the persistence the API needs. *db.DB satisfies it.
type Store interface {
	UpsertUser(ctx context.Context, discordID, name string) error
	CreateGroup(ctx context.Context, name, ownerID string) (*db.Group, error)
	Group(ctx context.Context, groupID int64) (*db.Group, error)
	GroupsForUser(ctx context.Context, userID string) ([]db.Group, error)
	CreateInvitation(ctx context.Context, groupID int64, createdBy string) (*db.Invitation, error)
	InvitationByToken(ctx context.Context, token string) (*db.Invitation, error)
	RespondInvitation(ctx context.Context, token, userID string, accept bool) (*db.Invitation, error)
	Transfer(ctx context.Context, id int64) (*db.Transfer, error)
	ListTransfers(ctx context.Context, groupID int64, status string) ([]db.Transfer, error)
	UpdateTransferStatus(ctx context.Context, id int64, status string) (*db.Transfer, error)
	ConfigureReminders(ctx context.Context, groupID int64, channelID string, intervalMinutes int) error
}

// TransferSaver persists settlement transfers for a group. *lootsplit.Service satisfies it.
type TransferSaver interface {
	SaveTransfers(ctx context.Context, groupID int64, createdBy string, transfers []hunt.Transfer) (int, error)
}

type API struct {
	router      *mux.Router
	store       Store
	transfers   TransferSaver
	config      *config.Config
	oauthConfig *oauth2.Config
	jwtSecret   []byte
	logger      *zap.Logger
}

func New(cfg *config.Config, store Store, transfers TransferSaver, logger *zap.Logger) *API {
	api := &API{
		router:    mux.NewRouter(),
		store:     store,
		transfers: transfers,
		config:    cfg,
		jwtSecret: []byte(cfg.JWTSecret),
		logger:    logger,
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURI,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://discord.com/api/oauth2/authorize",
				TokenURL: "https://discord.com/api/oauth2/token",
			},
		},
	}

	api.setupRoutes()
	return api
}

func (a *API) setupRoutes() {
	// Auth endpoints
	a.router.HandleFunc("/api/auth/login", a.handleLogin).Methods("GET")
	a.router.HandleFunc("/api/auth/callback", a.handleCallback).Methods("GET")
	a.router.HandleFunc("/api/auth/logout", a.handleLogout).Methods("POST")

	// Public endpoints
	a.router.HandleFunc("/api/hunts/parse", a.handleParseHunt).Methods("POST")
	a.router.HandleFunc("/api/hunts/settle", a.handleSettle).Methods("POST")
	a.router.HandleFunc("/api/blessings", a.handleBlessings).Methods("GET")

	// Protected endpoints
	protected := a.router.PathPrefix("/api").Subrouter()
	protected.Use(a.authMiddleware)

	protected.HandleFunc("/groups", a.handleListGroups).Methods("GET")
	protected.HandleFunc("/groups", a.handleCreateGroup).Methods("POST")
	protected.HandleFunc("/groups/{group_id}", a.handleGetGroup).Methods("GET")
	protected.HandleFunc("/groups/{group_id}/invitations", a.handleCreateInvitation).Methods("POST")
	protected.HandleFunc("/groups/{group_id}/transfers", a.handleListTransfers).Methods("GET")
	protected.HandleFunc("/groups/{group_id}/transfers", a.handleSaveTransfers).Methods("POST")
	protected.HandleFunc("/groups/{group_id}/reminders", a.handleConfigureReminders).Methods("PUT")
	protected.HandleFunc("/invitations/{token}", a.handleGetInvitation).Methods("GET")
	protected.HandleFunc("/invitations/{token}/accept", a.handleRespondInvitation(true)).Methods("POST")
	protected.HandleFunc("/invitations/{token}/reject", a.handleRespondInvitation(false)).Methods("POST")
	protected.HandleFunc("/transfers/{id}/status", a.handleUpdateTransferStatus).Methods("PUT")
}

// Handler returns the router wrapped with CORS handling.
func (a *API) Handler() http.Handler {
	// AllowCredentials must stay false while AllowedOrigins is "*".
	corsOptions := cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
	}
	return cors.New(corsOptions).Handler(a.router)
}

// Start serves the API until ctx is cancelled.
func (a *API) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.config.WebBind,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("API server listening", zap.String("addr", "http://"+a.config.WebBind))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
