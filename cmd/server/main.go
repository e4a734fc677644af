package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"

	"github.com/paperledger/link-service/credentials"
	credentialrepofake "github.com/paperledger/link-service/credentials/repofake"
	credentialrestrepo "github.com/paperledger/link-service/credentials/restrepo"
	"github.com/paperledger/link-service/driver"
	"github.com/paperledger/link-service/identity"
	"github.com/paperledger/link-service/internal/backend"
	"github.com/paperledger/link-service/internal/config"
	"github.com/paperledger/link-service/internal/secretbox"
	"github.com/paperledger/link-service/linking"
	"github.com/paperledger/link-service/linkstate"
	"github.com/paperledger/link-service/providers"
	"github.com/paperledger/link-service/providers/bankfeed"
	"github.com/paperledger/link-service/providers/drive"
	"github.com/paperledger/link-service/server"
	"github.com/paperledger/link-service/tenants"
	tenantrepofakes "github.com/paperledger/link-service/tenants/repofakes"
	tenantrestrepo "github.com/paperledger/link-service/tenants/restrepo"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatalf("Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Printf("Server stopped\n")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	handler, err := buildServer(context.Background(), c)
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler}
	go listenAndServe(httpServer)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	return returnError
}

func buildServer(ctx context.Context, c config.Config) (*server.Server, error) {
	verifier, err := identity.NewFromConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("identity verifier: %w", err)
	}

	codec, err := linkstate.NewCodec(c.GetStateSecret())
	if err != nil {
		return nil, fmt.Errorf("link state codec: %w", err)
	}

	repos, err := buildRepos(c)
	if err != nil {
		return nil, err
	}

	registry := providers.NewRegistry()
	registry.Register(drive.New(c.GetDriveClientID(), c.GetDriveClientSecret()))
	registry.Register(bankfeed.New(c.GetBankfeedClientID(), c.GetBankfeedSecret(), c.GetBankfeedEnvironment()))

	manager, err := linking.NewManager(repos, registry, codec, c.GetBaseURL())
	if err != nil {
		return nil, fmt.Errorf("linking manager: %w", err)
	}

	linkDriver, err := driver.New(manager)
	if err != nil {
		return nil, fmt.Errorf("link driver: %w", err)
	}

	return server.New(c, verifier, manager, linkDriver, repos)
}

// buildRepos selects storage for the current environment. DEV runs on
// in-memory fakes; anything else talks to the business backend with
// provider tokens sealed before they leave the process.
func buildRepos(c config.Config) (linking.Repos, error) {
	if c.GetEnv() == "DEV" {
		return linking.Repos{
			Tenants:     tenantrepofakes.NewFakeTenantRepo(),
			Credentials: credentialrepofake.NewFakeCredentialRepo(),
		}, nil
	}

	sealer, err := secretbox.New(c.GetCredentialSealKey())
	if err != nil {
		return linking.Repos{}, fmt.Errorf("credential sealer: %w", err)
	}
	if !sealer.Ready() {
		return linking.Repos{}, errors.New("CREDENTIAL_SEAL_KEY must be set outside DEV")
	}

	client := backend.New(c.GetBackendURL())
	var tenantRepo tenants.Repo = tenantrestrepo.New(client, nil)
	var credRepo credentials.Repo = credentialrestrepo.New(client, nil)
	return linking.Repos{
		Tenants:     tenantRepo,
		Credentials: credentials.NewSealedRepo(credRepo, sealer),
	}, nil
}

func listenAndServe(server *http.Server) error {
	log.Printf("Server listening on %s\n", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
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
