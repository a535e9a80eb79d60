package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/toyz/ruts/internal/cli"
	"github.com/toyz/ruts/internal/utils"
)

func main() {
	utils.DisableColorsUnlessTerminal()
	os.Exit(run(os.Args[1:], color.Output, color.Error))
}

func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("ruts", flag.ContinueOnError)
	flags.SetOutput(stderr)
	var (
		moduleFlag     = flags.String("module", "", "Custom module name for imports (defaults to go.mod module)")
		webPackageFlag = flags.String("web-package", "", "Package name that roots action URLs (default \"web\")")
		verboseFlag    = flags.Bool("verbose", false, "Enable verbose output and detailed error reporting")
		quietFlag      = flags.Bool("quiet", false, "Only show errors and final results")
		cleanFlag      = flags.Bool("clean", false, "Delete all autogen_actions.go files from the specified directories")
		checkFlag      = flags.Bool("check", false, "Fail when a generated file is missing or out of date instead of writing it")
	)
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: ruts [options] <directory-paths...>\n\n")
		fmt.Fprintf(stderr, "Ruts Action Generator\n")
		fmt.Fprintf(stderr, "Scans directories for //ruts::execute methods and generates autogen_actions.go registrations.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nDirectory Patterns:\n")
		fmt.Fprintf(stderr, "  ./...              Scan current directory and all subdirectories recursively\n")
		fmt.Fprintf(stderr, "  ./app/web/...      Scan the web directory and all its subdirectories\n")
		fmt.Fprintf(stderr, "  ./app/web/product  Scan only the specific directory (no recursion)\n")
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  ruts ./app/web/...                  # Generate registrations\n")
		fmt.Fprintf(stderr, "  ruts --check ./app/web/...          # Verify generated files in CI\n")
		fmt.Fprintf(stderr, "  ruts --clean ./...                  # Delete all autogen_actions.go files\n")
	}
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	dirs := flags.Args()
	if len(dirs) == 0 {
		fmt.Fprintf(stderr, "Error: At least one directory path is required\n\n")
		flags.Usage()
		return 1
	}

	var diagnostics *utils.DiagnosticSystem
	switch {
	case *quietFlag:
		diagnostics = utils.NewQuietDiagnostics()
	case *verboseFlag:
		diagnostics = utils.NewVerboseDiagnostics()
	default:
		diagnostics = utils.NewDiagnosticSystem(utils.DiagnosticInfo)
	}
	diagnostics.SetOutput(stdout, stderr)
	reporter := cli.NewDiagnosticReporter(*verboseFlag, stderr)

	diagnostics.Header("Action Generator")

	if *cleanFlag {
		removed, err := cli.NewCleaner().CleanGeneratedFiles(dirs)
		if err != nil {
			reporter.ReportError(err)
			return 1
		}
		for _, file := range removed {
			diagnostics.Item("Removed %s", utils.RelativePath(file))
		}
		diagnostics.Success("Removed %d autogen_actions.go files", len(removed))
		return 0
	}

	if *verboseFlag {
		diagnostics.Subsection("Configuration")
		diagnostics.List("Target directories: %s", strings.Join(dirs, ", "))
		if *moduleFlag != "" {
			diagnostics.List("Custom module: %s", *moduleFlag)
		}
		if *webPackageFlag != "" {
			diagnostics.List("Web package: %s", *webPackageFlag)
		}
	}

	generator := cli.NewGenerator(diagnostics)
	err := generator.Run(cli.Config{
		Directories: dirs,
		ModuleName:  *moduleFlag,
		WebPackage:  *webPackageFlag,
		Check:       *checkFlag,
		Verbose:     *verboseFlag,
	})
	summary := generator.Summary()
	if err != nil {
		reporter.ReportError(err)
		for _, file := range summary.StaleFiles {
			reporter.ReportWarning("stale: " + utils.RelativePath(file))
		}
		return 1
	}

	diagnostics.Summary("Generation Complete!", map[string]any{
		"Packages processed": summary.PackagesProcessed,
		"Actions found":      summary.ActionsFound,
		"Executes found":     summary.ExecutesFound,
		"Modules generated":  summary.ModulesGenerated,
		"Files written":      len(summary.GeneratedFiles),
		"Files unchanged":    len(summary.UnchangedFiles),
	})
	if *checkFlag {
		diagnostics.Success("Generated files are up to date")
	} else {
		diagnostics.Success("Your actions are registered!")
	}
	return 0
}
