package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/robalyx/isero/internal/profanity"
	"github.com/robalyx/isero/internal/setup/config"
	"github.com/robalyx/isero/internal/wordlist"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	app := &cli.Command{
		Name:  "wordlist",
		Usage: "Profanity word list validation and testing tool",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "file",
				Usage: "path of the word list (defaults to the first wordlist.jsonc in the config paths)",
			},
			&cli.IntFlag{
				Name:  "separator-max",
				Usage: "non-letter characters tolerated between letters",
				Value: profanity.DefaultSeparatorMax,
			},
			&cli.IntFlag{
				Name:  "repeat-max",
				Usage: "times each letter may repeat",
				Value: profanity.DefaultRepeatMax,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "check",
				Usage: "Check the word list for errors",
				Description: `Check the word list for errors:
- Empty terms and variants
- Duplicate terms
- Variants that repeat a term
- Entries that fail to compile
- Entries already matched by another entry

Returns exit code 1 if errors are found, 0 if clean.`,
				Action: func(_ context.Context, cmd *cli.Command) error {
					deps, err := setupDependencies(cmd)
					if err != nil {
						return err
					}

					issues := wordlist.ValidateWordlist(deps.wordlist, deps.opts)
					if len(issues) > 0 {
						fmt.Printf("❌ Found %d error(s):\n\n", len(issues))
						for _, issue := range issues {
							fmt.Printf("• %s\n", issue.Description)
						}
						return cli.Exit("", 1)
					}

					fmt.Println("✅ No errors found")
					return nil
				},
			},
			{
				Name:      "test",
				Usage:     "Show the matches and censored rendering of a text",
				ArgsUsage: "<text>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					text := strings.Join(cmd.Args().Slice(), " ")
					if text == "" {
						return errors.New("text argument is required")
					}

					deps, err := setupDependencies(cmd)
					if err != nil {
						return err
					}

					matcher := profanity.NewMatcher(deps.wordlist.Words(), deps.opts, deps.logger)
					spans := matcher.Find(text)
					if len(spans) == 0 {
						fmt.Println("✅ No matches")
						return nil
					}

					runes := []rune(text)
					fmt.Printf("Found %d match(es):\n", len(spans))
					for _, span := range spans {
						fmt.Printf("• [%d,%d) %q\n", span.Start, span.End, string(runes[span.Start:span.End]))
					}
					fmt.Printf("\n%s\n", profanity.Render(text, spans))
					return nil
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

// cliDependencies holds the common dependencies needed by CLI commands.
type cliDependencies struct {
	wordlist *config.Wordlist
	opts     profanity.Options
	logger   *zap.Logger
}

// setupDependencies loads the word list and matcher options from the flags.
func setupDependencies(cmd *cli.Command) (*cliDependencies, error) {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	opts := profanity.Options{
		SeparatorMax: int(cmd.Int("separator-max")),
		RepeatMax:    int(cmd.Int("repeat-max")),
	}

	var (
		list *config.Wordlist
		path = cmd.String("file")
	)
	if path != "" {
		list, err = config.ReadWordlist(path)
	} else {
		list, path, err = config.LoadWordlist(config.SearchPaths())
	}

	switch {
	case errors.Is(err, config.ErrWordlistNotFound):
		logger.Warn("Wordlist file not found, using the built-in phrases only")
		list = &config.Wordlist{}
	case err != nil:
		return nil, fmt.Errorf("failed to load wordlist: %w", err)
	default:
		logger.Info("Loaded wordlist", zap.Int("terms", len(list.Terms)), zap.String("path", path))
	}

	return &cliDependencies{wordlist: list, opts: opts, logger: logger}, nil
}
