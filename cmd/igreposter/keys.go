package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igreposter/pkg/secrets"
)

// keysCmd represents the keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage stored API keys",
	Long: `Manage the API keys the service depends on.

Keys are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Known key names:
  rapidapi_key          RapidAPI key for the scraper backends
  openai_api_key        OpenAI-compatible API key for caption rewriting
  instagram_app_id      Facebook app ID for the Graph API
  instagram_app_secret  Facebook app secret for the Graph API

Never share your keys or config files!`,
}

// keysSetCmd represents the keys set command
var keysSetCmd = &cobra.Command{
	Use:   "set <name>",
	Short: "Store an API key securely",
	Long: `Store an API key in the system keychain or encrypted file.

The value is read from stdin without echoing.`,
	Example: `  # Store the scraper key
  igreposter keys set rapidapi_key

  # Store the caption rewriting key
  igreposter keys set openai_api_key`,
	Args: cobra.ExactArgs(1),
	Run:  runKeysSet,
}

// keysGetCmd represents the keys get command
var keysGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Show a stored key (masked)",
	Args:  cobra.ExactArgs(1),
	Run:   runKeysGet,
}

// keysListCmd represents the keys list command
var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored keys",
	Long:  `List all stored API keys with masked values.`,
	Run:   runKeysList,
}

// keysDeleteCmd represents the keys delete command
var keysDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Remove a stored key",
	Args:  cobra.ExactArgs(1),
	Run:   runKeysDelete,
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.AddCommand(keysSetCmd)
	keysCmd.AddCommand(keysGetCmd)
	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysDeleteCmd)
}

func newSecretsManager() *secrets.Manager {
	manager, err := secrets.NewManager()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize secret store:", err)
		os.Exit(1)
	}
	return manager
}

func runKeysSet(cmd *cobra.Command, args []string) {
	name := args[0]
	if !isKnownKey(name) {
		fmt.Fprintf(os.Stderr, "unknown key name: %s\n", name)
		fmt.Fprintln(os.Stderr, "known names:", strings.Join(secrets.KnownKeys, ", "))
		os.Exit(1)
	}

	manager := newSecretsManager()

	if existing, _ := manager.Get(name); existing != nil {
		fmt.Printf("Key '%s' already exists. Overwrite? (y/N): ", name)
		reader := bufio.NewReader(os.Stdin)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return
		}
	}

	fmt.Printf("Value for %s (hidden as you type): ", name)
	value, err := readSecretValue()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to read value:", err)
		os.Exit(1)
	}
	if value == "" {
		fmt.Fprintln(os.Stderr, "value must not be empty")
		os.Exit(1)
	}

	if err := manager.Set(name, value); err != nil {
		fmt.Fprintln(os.Stderr, "failed to store key:", err)
		os.Exit(1)
	}
	fmt.Println("Key stored:", name)
}

func runKeysGet(cmd *cobra.Command, args []string) {
	manager := newSecretsManager()

	secret, err := manager.Get(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, "key not found:", args[0])
		os.Exit(1)
	}

	sanitized := secrets.Sanitize(secret)
	fmt.Printf("%s: %s (modified %s)\n", sanitized.Name, sanitized.Value,
		sanitized.LastModified.Format("2006-01-02 15:04:05"))
}

func runKeysList(cmd *cobra.Command, args []string) {
	manager := newSecretsManager()

	stored, err := manager.List()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to list keys:", err)
		os.Exit(1)
	}
	if len(stored) == 0 {
		fmt.Println("No stored keys. Use 'igreposter keys set <name>' to add one.")
		return
	}

	for _, secret := range stored {
		sanitized := secrets.Sanitize(secret)
		fmt.Printf("%-22s %s\n", sanitized.Name, sanitized.Value)
	}
}

func runKeysDelete(cmd *cobra.Command, args []string) {
	manager := newSecretsManager()

	if err := manager.Delete(args[0]); err != nil {
		fmt.Fprintln(os.Stderr, "failed to delete key:", err)
		os.Exit(1)
	}
	fmt.Println("Key removed:", args[0])
}

func isKnownKey(name string) bool {
	for _, known := range secrets.KnownKeys {
		if known == name {
			return true
		}
	}
	return false
}

// readSecretValue reads a value from stdin without echoing.
func readSecretValue() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		value, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(value)), nil
		}
	}

	// Fallback to regular input when stdin is not a terminal.
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
