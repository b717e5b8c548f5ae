package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/agentuity/go-common/logger"
	"github.com/fatih/color"
	"github.com/funcn-ai/funcn/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "funcn",
	Short: "Pull agents, tools, and prompt templates into your project",
	Long: `funcn is a package manager for LLM components: agents, tools, prompt
templates, response models, evals, and examples. Components are pulled from
one or more registry sources into your project as plain, editable source.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/funcn/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "The log level to use")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)
		dir := filepath.Join(home, ".config", "funcn")
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0700); err != nil {
				log.Fatalf("failed to create config directory (%s): %s", dir, err)
			}
		}
		cfgFile = filepath.Join(dir, "config.yaml")
		viper.SetConfigFile(cfgFile)
	}

	viper.SetDefault("overrides.cache_dir", defaultCacheDir())
	viper.AutomaticEnv() // read in environment variables that match
	viper.ReadInConfig()
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "funcn-cache")
	}
	return filepath.Join(home, ".config", "funcn", "cache")
}

// cacheDir returns the directory index payloads are cached in, overridable
// from the user-level config.
func cacheDir() string {
	return viper.GetString("overrides.cache_dir")
}

// loadProjectConfig loads funcn.json from the current directory, terminating
// the command when not inside a funcn project.
func loadProjectConfig(logger logger.Logger) *config.Config {
	cwd, err := os.Getwd()
	if err != nil {
		logger.Fatal("failed to get current directory: %s", err)
	}
	if !config.ProjectExists(cwd) {
		logger.Fatal("no %s file found in the current directory", config.Filename)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		logger.Fatal("%s", err)
	}
	return cfg
}

func printSuccess(msg string, args ...any) {
	fmt.Printf("%s %s", color.GreenString("✓"), fmt.Sprintf(msg, args...))
	fmt.Println()
}
