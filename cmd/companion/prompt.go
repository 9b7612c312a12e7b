package main

import (
	"fmt"
	"strings"

	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/intent"
	"github.com/ashureev/wellness-companion/internal/prompt"
	"github.com/spf13/cobra"
)

func newPromptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prompt [message]",
		Short: "Print the prompt the model would receive for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPrompt,
	}
	cmd.Flags().StringP("lang", "l", "en", "response language (code or name)")
	cmd.Flags().StringP("intent", "i", "", "intent to use instead of classifying the message")
	return cmd
}

func runPrompt(cmd *cobra.Command, args []string) error {
	rawLang, _ := cmd.Flags().GetString("lang")
	rawIntent, _ := cmd.Flags().GetString("intent")

	lang, ok := domain.ParseLanguage(rawLang)
	if !ok {
		return fmt.Errorf("unsupported language %q", rawLang)
	}

	text := strings.Join(args, " ")
	in := intent.Classify(text)
	if rawIntent != "" {
		in = domain.Intent(rawIntent)
		if !in.Valid() {
			return fmt.Errorf("unknown intent %q", rawIntent)
		}
	}

	composer, err := loadComposer(cmd)
	if err != nil {
		return err
	}
	out, err := composer.Compose(prompt.Context{UserText: text, Language: lang, Intent: in})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, metaLine("intent: %s  language: %s", in, lang.DisplayName()))
	fmt.Fprintln(w, out)
	return nil
}

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List supported response languages",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render("Supported languages"))
			for _, lang := range domain.SupportedLanguages() {
				fmt.Fprintf(w, "  %s  %s\n", lang, lang.DisplayName())
			}
		},
	}
}
