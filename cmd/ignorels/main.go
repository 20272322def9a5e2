package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/matkrin/ignorels/internal/completion"
	"github.com/matkrin/ignorels/internal/lsp"
	"github.com/matkrin/ignorels/internal/server"
)

const (
	name    = "ignorels"
	version = "0.1.0"

	// didOpen carries a document's full text in one message.
	maxMessageSize = 16 * 1024 * 1024
)

func main() {
	logFile := flag.String("logfile", "", "write logs to this file instead of stderr")
	logLevel := flag.String("loglevel", "info", "log level: debug, info, warn or error")
	stripAnchors := flag.Bool("strip-anchors", true, "drop leading \"/\" and \"!\" from a line before completing it")
	normalize := flag.Bool("normalize-before-split", false, "treat \"\\\" as a path separator when completing")
	debounce := flag.Duration("diagnostic-debounce", 300*time.Millisecond, "delay diagnostics after an edit")
	showVersion := flag.Bool("version", false, "print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", name, version)
		return
	}

	if err := initLogging(*logLevel, *logFile); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		os.Exit(2)
	}
	slog.Info("Logging initialized", "level", *logLevel)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	scanner.Split(lsp.Split)

	config := server.Config{
		Completion: completion.Options{
			StripAnchorMarkers:   *stripAnchors,
			NormalizeBeforeSplit: *normalize,
		},
		DiagnosticDebounceTime: *debounce,
	}

	state := server.NewState(config)
	writer := os.Stdout
	server := server.NewServer(name, version, state, writer)

	for scanner.Scan() {
		msg := scanner.Bytes()
		method, contents, err := lsp.DecodeMessage(msg)
		if err != nil {
			slog.Error("ERROR decoding message", "err", err)
			continue
		}
		// The scanner reuses its buffer on the next Scan.
		server.HandleMessage(method, append([]byte(nil), contents...))
	}
	if err := scanner.Err(); err != nil {
		slog.Error("Reading stdin failed", "err", err)
	}
	server.Stop()
}

func initLogging(levelStr string, filename string) error {
	level := new(slog.LevelVar)

	var l slog.Level
	switch levelStr {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	level.Set(l)

	var out io.Writer = os.Stderr
	if filename != "" {
		logfile, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0666)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		out = logfile
	}

	handler := slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	})

	slog.SetDefault(slog.New(handler))
	return nil
}
