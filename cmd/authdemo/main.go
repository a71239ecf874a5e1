package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/recipevault/go-client-auth/auth"
	"github.com/recipevault/go-client-auth/auth/state"
	"github.com/recipevault/go-client-auth/gateway"
	"github.com/recipevault/go-client-auth/internal/config"
	"github.com/recipevault/go-client-auth/sessions"
	"github.com/recipevault/go-client-auth/sessions/sqliterepo"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("Error running auth demo")
	}
	log.Info().Msg("Auth demo stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Msgf("Recovered from panic: %v", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config.Load: %w", err)
	}
	if cfg.IsDev() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	displayAppname("Recipe Vault")

	repo, err := sqliterepo.Open(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("sqliterepo.Open: %w", err)
	}
	defer repo.Close()

	store, err := sessions.NewStore(repo)
	if err != nil {
		return fmt.Errorf("sessions.NewStore: %w", err)
	}

	projection := state.NewStore()
	flow, err := auth.NewFlow(auth.Deps{
		Store:      store,
		Gateway:    gateway.New(cfg.BaseURL, gateway.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout})),
		Projection: projection,
		Browser:    systemBrowser{},
		Navigator:  logNavigator{},
	}, cfg.RedirectURI)
	if err != nil {
		return fmt.Errorf("auth.NewFlow: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go logSnapshots(ctx, projection)

	flow.Restore(ctx)
	if snap := projection.Snapshot(); snap.IsAuthenticated {
		resumePath := flow.ConsumePostLoginRedirect(ctx)
		log.Info().Str("email", snap.User.Email).Str("path", resumePath).Msg("Already signed in")
	} else if err := flow.SignIn(ctx, "/recipes"); err != nil {
		return fmt.Errorf("flow.SignIn: %w", err)
	}

	server := &http.Server{Addr: cfg.CallbackAddr, Handler: callbackHandler(flow)}
	go listenAndServe(server)
	waitForStopSignal()
	return shutdown(server)
}

// callbackHandler is the loopback stand-in for the mobile deep link: the
// external authorization step redirects here with code and state.
func callbackHandler(flow *auth.Flow) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/callback", func(w http.ResponseWriter, r *http.Request) {
		flow.HandleCallback(r.Context(), r.URL.String())
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body>You can close this window.</body></html>")
	})
	return mux
}

func logSnapshots(ctx context.Context, projection *state.Store) {
	updates, cancel := projection.Subscribe()
	defer cancel()
	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			event := log.Info().
				Bool("authenticated", snap.IsAuthenticated).
				Bool("loading", snap.IsLoading)
			if snap.Err != "" {
				event = event.Str("error", snap.Err)
			}
			if snap.User != nil {
				event = event.Str("user", snap.User.Email)
			}
			event.Msg("Session state")
		}
	}
}

// systemBrowser opens URLs in the OS default browser.
type systemBrowser struct{}

func (systemBrowser) Open(ctx context.Context, rawURL string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.CommandContext(ctx, "open", rawURL).Start()
	case "windows":
		return exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", rawURL).Start()
	default:
		return exec.CommandContext(ctx, "xdg-open", rawURL).Start()
	}
}

// logNavigator stands in for the UI router.
type logNavigator struct{}

func (logNavigator) ToAuthenticated(path string) {
	log.Info().Str("path", path).Msg("Navigate to authenticated area")
}

func (logNavigator) ToUnauthenticated() {
	log.Info().Msg("Navigate to sign-in screen")
}

func listenAndServe(server *http.Server) {
	log.Info().Str("addr", server.Addr).Msg("Callback listener ready")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Err(err).Msg("Callback listener failed")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
