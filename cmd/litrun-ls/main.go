package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jwtly10/litrun/internal/lsp/server"
	"github.com/sourcegraph/jsonrpc2"
)

type stdRWC struct{}

func (stdRWC) Read(p []byte) (int, error)  { return os.Stdin.Read(p) }
func (stdRWC) Write(p []byte) (int, error) { return os.Stdout.Write(p) }
func (stdRWC) Close() error                { return nil }

// getLogFile returns a log file for the lsp server to write to.
//
// During development (-debug flag) uses persistent log for easy access.
func getLogFile(debug bool) (*os.File, error) {
	if debug {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir := filepath.Join(homeDir, ".litrun")
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, err
		}
		return os.OpenFile(filepath.Join(logDir, "litrun-ls.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	}

	return os.CreateTemp("", "litrun-ls-*.log")
}

// newLogHandler logs with source locations, at debug level when debug is set.
// Stdout carries the protocol, so nothing is ever logged there.
func newLogHandler(w io.Writer, debug bool) slog.Handler {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
	})
}

func main() {
	var debug bool
	var mkdirs bool
	flag.BoolVar(&debug, "debug", false, "Enable debug logging")
	flag.BoolVar(&mkdirs, "mkdirs", false, "Treat subdirectory file targets as created at run time")
	flag.Parse()

	logFile, err := getLogFile(debug)
	if err != nil {
		slog.Error("failed to setup logging", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	var logOut io.Writer = logFile
	if debug {
		logOut = io.MultiWriter(os.Stderr, logFile)
	}
	handler := newLogHandler(logOut, debug)

	slog.SetDefault(slog.New(handler))
	slog.Info("starting litrun-ls", "logfile", logFile.Name())

	opts := server.DefaultServerOptions
	opts.DocService.Mkdirs = mkdirs
	s := server.NewServer(opts)

	<-jsonrpc2.NewConn(
		context.Background(),
		jsonrpc2.NewBufferedStream(stdRWC{}, jsonrpc2.VSCodeObjectCodec{}),
		jsonrpc2.HandlerWithError(s.Handle),
	).DisconnectNotify()
}
