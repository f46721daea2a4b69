package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/picdrop/internal/client/client"
	"github.com/dmitrijs2005/picdrop/internal/client/config"
	"github.com/dmitrijs2005/picdrop/internal/client/repositories"
	"github.com/dmitrijs2005/picdrop/internal/client/resources"
	"github.com/dmitrijs2005/picdrop/internal/client/services"
	"github.com/dmitrijs2005/picdrop/internal/client/session"
	"github.com/dmitrijs2005/picdrop/internal/client/sink"
	"github.com/dmitrijs2005/picdrop/internal/client/target"
	"github.com/dmitrijs2005/picdrop/internal/client/view"
	"github.com/dmitrijs2005/picdrop/internal/logging"
)

// thumbnailWait bounds how long a listing command waits for thumbnails
// before printing.
const thumbnailWait = 15 * time.Second

// App is the terminal front end: it owns the local database and every
// client component, and maps REPL commands onto them.
type App struct {
	config *config.Config
	log    logging.Logger
	db     *sql.DB
	out    io.Writer

	store      *session.Store
	controller *view.Controller
	selector   *target.Selector
	loader     *resources.Loader

	authService     services.AuthService
	contactsService services.ContactsService
	sendService     services.SendService
	libraryService  services.LibraryService
}

// NewApp opens the local database and wires the client together.
func NewApp(ctx context.Context, c *config.Config, log logging.Logger) (*App, error) {
	db, err := repositories.OpenDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	store := session.NewStore(db, log.With("component", "session"))

	apiClient, err := client.NewHTTPClient(c.ServerURL, store,
		client.WithTimeout(c.RequestTimeout),
		client.WithLogger(log.With("component", "api")),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	out, err := newSink(ctx, c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	loader := resources.NewLoader(apiClient, resources.NewRegistry(), log.With("component", "resources"))
	controller := view.NewController(store, loader, log.With("component", "view"))
	apiClient.SetUnauthorizedHandler(controller.Unauthorized)

	selector := target.NewSelector()
	contacts := services.NewContactsService(apiClient, selector, log)

	a := &App{
		config:          c,
		log:             log,
		db:              db,
		out:             os.Stdout,
		store:           store,
		controller:      controller,
		selector:        selector,
		loader:          loader,
		authService:     services.NewAuthService(apiClient, controller, log),
		contactsService: contacts,
		sendService:     services.NewSendService(apiClient, selector, loader, contacts, log),
		libraryService: services.NewLibraryService(apiClient, loader, out, services.LibraryOptions{
			OpenTTL:              c.OpenTTL,
			ThumbnailConcurrency: c.ThumbnailConcurrency,
		}, log),
	}

	controller.SetTabLoader(view.TabContacts, func(ctx context.Context) error {
		_, err := a.contactsService.Load(ctx)
		return err
	})
	controller.SetTabLoader(view.TabSent, func(ctx context.Context) error {
		_, err := a.libraryService.LoadSent(ctx)
		return err
	})
	controller.SetTabLoader(view.TabReceived, func(ctx context.Context) error {
		_, err := a.libraryService.LoadReceived(ctx)
		return err
	})
	controller.Subscribe(a.onStateChange)

	return a, nil
}

func newSink(ctx context.Context, c *config.Config) (sink.Sink, error) {
	if c.S3Bucket == "" {
		return sink.NewDir(c.DownloadDir), nil
	}
	return sink.NewS3(ctx, sink.S3Config{
		Bucket:    c.S3Bucket,
		Region:    c.S3Region,
		Endpoint:  c.S3Endpoint,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
	})
}

// Run restores the previous session and serves commands from in until EOF
// or exit.
func (a *App) Run(ctx context.Context, in io.Reader) error {
	defer a.Close()

	printlnFn("Welcome to picdrop (type 'help' for commands)")

	if err := a.controller.Restore(ctx); err != nil {
		printlnFn("Error:", services.UserMessage(err))
	}
	if a.controller.State() == view.Active {
		a.printContacts()
	}

	runREPL(ctx, a, a.status, bufio.NewScanner(in))
	return nil
}

// Close releases every handle and closes the database.
func (a *App) Close() {
	a.loader.ReleaseAll()
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) state() view.State {
	return a.controller.State()
}

func (a *App) onStateChange(s view.State) {
	switch s {
	case view.Unauthenticated:
		printlnFn("You are logged out.")
	case view.MustChangeCredential:
		printlnFn("You must choose a new password before continuing (passwd).")
	case view.Active:
		if id := a.store.Identity(); id != nil {
			printlnFn("Logged in as", id.Username)
		}
	}
}

// status renders the prompt suffix: user, current target and staged file.
func (a *App) status() string {
	id := a.store.Identity()
	if id == nil {
		return ""
	}

	parts := []string{id.Username}
	if to, ok := a.selector.Current(); ok {
		parts = append(parts, "→ "+to)
	}
	if st, ok := a.sendService.Staged(); ok {
		parts = append(parts, st.Name)
	}
	if a.selector.SendEnabled() {
		parts = append(parts, "ready to send")
	}
	return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
}
