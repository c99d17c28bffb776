package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igreposter/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igreposter configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - A .env file in the working directory
  - Configuration file
  - Default values (lowest priority)`,
}

// configInitCmd represents the config init command
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.igreposter.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration merged from all sources.

Sensitive values like API keys are masked for security.`,
	Run: runConfigShow,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".igreposter.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(os.Stderr, "configuration file already exists:", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		fmt.Fprintln(os.Stderr, "failed to create configuration file:", err)
		os.Exit(1)
	}

	fmt.Println("Configuration file created:", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Store API keys with 'igreposter keys set rapidapi_key'")
	fmt.Println("2. Adjust the server and store sections as needed")
	fmt.Println("3. Start the server with 'igreposter serve'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	displayCfg := *cfg
	displayCfg.Scraper.RapidAPIKey = maskValue(displayCfg.Scraper.RapidAPIKey)
	displayCfg.Paraphrase.APIKey = maskValue(displayCfg.Paraphrase.APIKey)
	displayCfg.Graph.AppSecret = maskValue(displayCfg.Graph.AppSecret)
	displayCfg.Store.PostgresDSN = maskValue(displayCfg.Store.PostgresDSN)

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to format configuration:", err)
		os.Exit(1)
	}

	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (RAPIDAPI_KEY, OPENAI_API_KEY, IGREPOSTER_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (auto-discovered)")
	}
	fmt.Println("4. Secret store ('igreposter keys')")
	fmt.Println("5. Default values")
}

func maskValue(value string) string {
	if value == "" {
		return ""
	}
	if len(value) > 8 {
		return value[:4] + "..." + value[len(value)-4:]
	}
	return "***"
}
