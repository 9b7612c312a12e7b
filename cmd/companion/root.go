package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ashureev/wellness-companion/internal/prompt"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func execute() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "companion",
		Short: "Multilingual mental wellness companion",
		Long: `Chat with the wellness companion from a terminal, or preview the
prompt it would send to the model for a message.

Configuration comes from the same environment variables as the server
(GENAI_API_KEY, GENAI_MODEL, DEFAULT_LANGUAGE, ...). A .env file in the
working directory is loaded when present.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			envFile, _ := cmd.Flags().GetString("env-file")
			loadEnv(envFile)
		},
	}

	rootCmd.PersistentFlags().String("env-file", "", "path to a .env file (default: ./.env if present)")
	rootCmd.PersistentFlags().String("prompt-table", "", "YAML file overriding the built-in prompt table")

	rootCmd.AddCommand(newChatCmd())
	rootCmd.AddCommand(newPromptCmd())
	rootCmd.AddCommand(newLanguagesCmd())

	return rootCmd
}

func loadEnv(path string) {
	if path == "" {
		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}
		return
	}
	if err := godotenv.Load(path); err != nil {
		slog.Warn("Failed to load env file", "path", path, "error", err)
	}
}

func loadComposer(cmd *cobra.Command) (*prompt.Composer, error) {
	path, _ := cmd.Flags().GetString("prompt-table")
	if path == "" {
		return prompt.NewDefaultComposer()
	}
	table, err := prompt.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return prompt.NewComposer(table)
}
