package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╔═╗╦╦  ╦
  ╚═╗║║  ║
  ╚═╝╩╩═╝╩═╝
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "sill",
		Short: "Host-controlled lifecycle bridge for custom elements",
		Long: `Sill is a host-controlled lifecycle bridge for custom elements.

An engine owns the document tree and reports element lifecycle over a
websocket; sill dispatches the callbacks your Go code registered for
each element kind and issues DOM work back across the same connection.

Commands:
  • serve     run the bridge server engines connect to
  • simulate  replay a YAML lifecycle scenario in memory
  • init      scaffold a sill.json project
  • version   print build information`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		simulateCmd(),
		initCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "\033[31mError:\033[0m %s\n", err)
		os.Exit(1)
	}
}

// printBanner prints the sill ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
