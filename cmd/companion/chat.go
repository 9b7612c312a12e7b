package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/ashureev/wellness-companion/internal/companion"
	"github.com/ashureev/wellness-companion/internal/config"
	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/language"
	"github.com/ashureev/wellness-companion/internal/llm"
	"github.com/ashureev/wellness-companion/internal/session"
	"github.com/ashureev/wellness-companion/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /lang <code|name>       switch response language
  /auto on|off            toggle language auto-detection
  /tip                    daily wellness tip
  /do <activity> [topic]  run an activity (mindfulness, breathing, journal_prompt, motivation, resources)
  /journal <text>         save a journal entry (needs --db)
  /history                print the transcript
  /quit                   leave`

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE:  runChatCmd,
	}
	cmd.Flags().StringP("lang", "l", "", "starting language (default: DEFAULT_LANGUAGE)")
	cmd.Flags().Bool("no-detect", false, "disable language auto-detection")
	cmd.Flags().String("db", "", "SQLite file for mood and journal entries")
	return cmd
}

func runChatCmd(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	prefs := cfg.DefaultPreferences()
	if raw, _ := cmd.Flags().GetString("lang"); raw != "" {
		lang, ok := domain.ParseLanguage(raw)
		if !ok {
			return fmt.Errorf("unsupported language %q", raw)
		}
		prefs.Language = lang
	}
	if noDetect, _ := cmd.Flags().GetBool("no-detect"); noDetect {
		prefs.AutoDetect = false
	}

	composer, err := loadComposer(cmd)
	if err != nil {
		return err
	}

	model, err := llm.NewClient(llm.Config{
		APIKey:      cfg.Model.APIKey,
		BaseURL:     cfg.Model.BaseURL,
		Model:       cfg.Model.Name,
		Temperature: cfg.Model.Temperature,
	})
	if err != nil {
		return err
	}

	opts := companion.Options{
		ModelTimeout:     cfg.Model.Timeout,
		HistoryExchanges: cfg.Companion.HistoryExchanges,
		Logger:           logger,
	}
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		repo, err := store.NewSQLite(dbPath)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Warn("Failed to close repository", "error", closeErr)
			}
		}()
		opts.Entries = repo
	}

	svc, err := companion.NewService(language.NewResolver(language.NewLinguaDetector(), logger), composer, model, opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	sess := session.New("cli_"+uuid.NewString(), prefs)
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, titleStyle.Render("Wellness Companion"))
	fmt.Fprintln(out, metaLine("model %s · language %s · /help for commands", model.Model(), prefs.Language.DisplayName()))
	return runChat(cmd.Context(), svc, sess, cmd.InOrStdin(), out)
}

// runChat reads lines from in until EOF or /quit.
func runChat(ctx context.Context, svc *companion.Service, sess *session.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userStyle.Render("you › "))
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := runCommand(ctx, svc, sess, line, out)
			if err != nil {
				fmt.Fprintln(out, errorStyle.Render(err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}

		printReply(out, svc.Respond(ctx, sess, line))
	}
}

func runCommand(ctx context.Context, svc *companion.Service, sess *session.Session, line string, out io.Writer) (bool, error) {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		fmt.Fprintln(out, metaStyle.Render(chatHelp))
	case "/lang":
		lang, ok := domain.ParseLanguage(rest)
		if !ok {
			return false, fmt.Errorf("unsupported language %q", rest)
		}
		if err := sess.SetLanguage(lang); err != nil {
			return false, err
		}
		fmt.Fprintln(out, metaLine("language: %s", lang.DisplayName()))
	case "/auto":
		switch rest {
		case "on":
			sess.SetAutoDetect(true)
		case "off":
			sess.SetAutoDetect(false)
		default:
			return false, errors.New("usage: /auto on|off")
		}
		fmt.Fprintln(out, metaLine("auto-detect: %s", rest))
	case "/tip":
		printReply(out, svc.DailyTip(ctx, sess))
	case "/do":
		activity, topic, _ := strings.Cut(rest, " ")
		reply, err := svc.Perform(ctx, sess, companion.Activity(activity), strings.TrimSpace(topic))
		if err != nil {
			return false, err
		}
		printReply(out, reply)
	case "/journal":
		entry, err := svc.SaveJournal(ctx, sess, rest)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(out, metaLine("saved %s", entry.ID))
	case "/history":
		for _, t := range sess.Memory().Turns() {
			fmt.Fprintf(out, "%s %s\n", metaStyle.Render(t.Role.Label()+":"), t.Text)
		}
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func printReply(out io.Writer, reply companion.Reply) {
	fmt.Fprintln(out, replyStyle.Render(reply.Text))
	meta := metaLine("%s · %s", reply.Intent, reply.Language.DisplayName())
	if reply.Fallback {
		meta += " " + warningStyle.Render("(fallback)")
	}
	if reply.LanguageChanged {
		meta += " " + warningStyle.Render("(language switched)")
	}
	fmt.Fprintln(out, meta)
}
