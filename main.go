package main

import (
	"fmt"
	"os"

	"github.com/safetrack/safetrack/cmd"
	"github.com/safetrack/safetrack/internal/buildinfo"
	"github.com/safetrack/safetrack/internal/conf"
	"github.com/safetrack/safetrack/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = ""
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	build := &buildinfo.Context{Version: version, BuildDate: buildDate}
	settings := &conf.Settings{}

	rootCmd := cmd.RootCommand(settings, build)
	err := rootCmd.Execute()

	if cerr := logger.Global().Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", cerr)
	}
	if err != nil {
		return 1
	}
	return 0
}
