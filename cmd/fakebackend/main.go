package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/mento-client/internal/bootstrap"
	"github.com/jrsteele09/mento-client/internal/config"
	"github.com/jrsteele09/mento-client/internal/fakebackend"
	"github.com/rs/zerolog/log"
)

var errPanicRecovered = errors.New("panic recovered")

// main restarts the backend after a panic; any other error is fatal.
func main() {
	for {
		err := run()
		if err == nil {
			break
		}
		if !errors.Is(err, errPanicRecovered) {
			log.Fatal().Err(err).Msg("Error running fake backend")
		}
		log.Error().Err(err).Msg("Restarting fake backend")
		time.Sleep(1 * time.Second)
	}
	log.Info().Msg("Fake backend stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errPanicRecovered
		}
	}()

	c, err := config.Load(".env")
	if err != nil {
		return err
	}
	bootstrap.SetupLogging(c.GetEnv(), c.GetLogLevel(), os.Stderr)
	displayAppname("Mento Fake API")

	backend := fakebackend.New(
		fakebackend.WithEnv(c.GetEnv()),
		fakebackend.WithSecret(c.GetFakeBackendSecret()),
	)
	server := &http.Server{Addr: c.GetFakeBackendPort(), Handler: backend, ReadHeaderTimeout: 10 * time.Second}

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(server) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(server)
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Str("basePath", fakebackend.BasePath).Msg("Fake backend listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
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
