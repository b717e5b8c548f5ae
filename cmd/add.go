package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/agentuity/go-common/env"
	"github.com/agentuity/go-common/tui"
	"github.com/funcn-ai/funcn/internal/installer"
	"github.com/funcn-ai/funcn/internal/util"
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add <identifier>",
	Short: "Add a component to your project",
	Long: `Add a component and its registry dependencies to your project.

The identifier is either a component name looked up across your configured
registry sources, or a direct manifest URL.

Examples:
  funcn add text-summarization-agent
  funcn add pdf-search-tool --provider openai --model gpt-4o-mini
  funcn add https://registry.example.com/components/agent/component.json
  funcn add web-search-agent --source mycompany --with-lilypad`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		logger := env.NewLogger(cmd)
		cfg := loadProjectConfig(logger)

		provider, _ := cmd.Flags().GetString("provider")
		model, _ := cmd.Flags().GetString("model")
		withLilypad, _ := cmd.Flags().GetBool("with-lilypad")
		stream, _ := cmd.Flags().GetBool("stream")
		sourceAlias, _ := cmd.Flags().GetString("source")
		force, _ := cmd.Flags().GetBool("force")
		sets, _ := cmd.Flags().GetStringArray("set")

		variables := make(map[string]string, len(sets))
		for _, kv := range sets {
			key, value, ok := strings.Cut(kv, "=")
			if !ok || key == "" {
				logger.Fatal("invalid --set value %q (expected name=value)", kv)
			}
			variables[key] = value
		}

		orchestrator := installer.New(ctx, logger, cfg, cacheDir())

		var result *installer.Result
		var err error
		tui.ShowSpinner("resolving and installing ...", func() {
			result, err = orchestrator.AddComponent(installer.Options{
				Identifier:  args[0],
				Provider:    provider,
				Model:       model,
				WithLilypad: withLilypad,
				Stream:      stream,
				SourceAlias: sourceAlias,
				Force:       force,
				Variables:   variables,
			})
		})
		if err != nil {
			logger.Fatal("%s", err)
		}

		tui.ShowSuccess("Installed %s", util.Pluralize(len(result.Installed), "component", "components"))
		for _, manifest := range result.Installed {
			fmt.Printf("  %s %s %s\n", tui.Bold(manifest.Name), tui.Muted("v"+manifest.Version), tui.Muted("("+string(manifest.Type)+")"))
		}
		for _, name := range result.AlreadyCurrent {
			fmt.Println(tui.Muted("  " + name + " was already installed at this version"))
		}

		printInstallReport(result)
	},
}

// printInstallReport prints the third-party packages and environment
// variables the user has to satisfy themselves; funcn never installs either.
func printInstallReport(result *installer.Result) {
	if len(result.PythonDependencies) > 0 {
		fmt.Println()
		fmt.Println(tui.Title("Python dependencies"))
		fmt.Println(tui.Text("Install these in your project environment:"))
		pip := "pip install"
		for _, dep := range result.PythonDependencies {
			pip += " " + dep
		}
		fmt.Println("  " + tui.Command(pip))
	}
	if len(result.EnvironmentVariables) > 0 {
		fmt.Println()
		fmt.Println(tui.Title("Environment variables"))
		for _, ev := range result.EnvironmentVariables {
			marker := printEnvMarker(ev)
			desc := ev.Description
			if desc != "" {
				desc = " " + tui.Muted(util.MaxString(desc, 60))
			}
			fmt.Printf("  %s %s%s\n", marker, tui.Bold(ev.Name), desc)
		}
	}
}

func printEnvMarker(ev installer.EnvReport) string {
	switch {
	case ev.Set:
		return tui.Text("✓")
	case ev.Required:
		return tui.Warning("✕")
	default:
		return tui.Muted("-")
	}
}

func init() {
	rootCmd.AddCommand(addCmd)

	addCmd.Flags().String("provider", "", "The LLM provider to configure installed components for")
	addCmd.Flags().String("model", "", "The model to configure installed components for")
	addCmd.Flags().Bool("with-lilypad", false, "Enable the optional lilypad observability integration")
	addCmd.Flags().Bool("stream", false, "Configure installed components for streaming responses")
	addCmd.Flags().String("source", "", "Resolve only against the named registry source")
	addCmd.Flags().Bool("force", false, "Overwrite components that already exist in the project")
	addCmd.Flags().StringArray("set", nil, "Override a template variable as name=value (repeatable)")
}
