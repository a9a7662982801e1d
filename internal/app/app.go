package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "integrate", "run":
		return runIntegrate(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "report":
		return runReport(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "integrator CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  integrator <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  integrate  Load every source, remove duplicates, write outputs")
	fmt.Fprintln(os.Stderr, "  run        Alias for integrate")
	fmt.Fprintln(os.Stderr, "  validate   Check every source table against the row schema")
	fmt.Fprintln(os.Stderr, "  report     Print the last integration report")
	fmt.Fprintln(os.Stderr, "  serve      Start the read-only Echo API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"integrator <command> -h\" for command-specific flags.")
}
