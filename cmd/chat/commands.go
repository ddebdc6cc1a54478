package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ibreez3/ai-chat/chat"
)

var (
	system    string
	completeN int
	colourN   int
)

var askCmd = &cobra.Command{
	Use:   "ask <prompt>...",
	Short: "Ask each prompt as one turn of a session and print the transcript",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		s := chat.NewSession(gen, seed()...)
		out := cmd.OutOrStdout()
		for _, prompt := range args {
			reply, err := s.Ask(cmd.Context(), prompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, reply)
		}
		heading(out, "Session transcript:")
		for _, line := range s.Transcript() {
			fmt.Fprintln(out, line)
		}
		return nil
	},
}

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Interactive session reading prompts from stdin",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		return repl(cmd.Context(), chat.NewSession(gen, seed()...), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <prompt>",
	Short: "Print n independent completions of a single prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		history := append(seed(), chat.UserMessage(args[0]))
		c, err := gen.Generate(cmd.Context(), history, completeN)
		if err != nil {
			return err
		}
		i := 0
		for msg := range c.All() {
			i++
			fmt.Fprintf(cmd.OutOrStdout(), "%d: %s\n", i, msg.Content())
		}
		return nil
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Pick n colours at random and write a sentence about each",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("temperature") {
			cfg.OpenAI.Temperature = 1.0
		}
		gen, err := newGenerator(cfg)
		if err != nil {
			return err
		}
		sentences, err := colourSentences(cmd.Context(), gen, colourN)
		for _, s := range sentences {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
		return err
	},
}

func init() {
	for _, c := range []*cobra.Command{askCmd, replCmd, completeCmd} {
		c.Flags().StringVar(&system, "system", "", "system prompt seeding the conversation")
	}
	completeCmd.Flags().IntVar(&completeN, "n", 1, "number of completions")
	pipelineCmd.Flags().IntVar(&colourN, "n", 10, "number of colours")
}

func seed() chat.History {
	if system == "" {
		return nil
	}
	return chat.History{chat.SystemMessage(system)}
}

func heading(w io.Writer, title string) {
	rule := strings.Repeat("-", 80)
	fmt.Fprintf(w, "\n%s\n%s\n%s\n\n", rule, title, rule)
}

// repl asks one turn per non-empty input line until EOF or "/quit".
// Exhausted retries are reported and the loop goes on; any other error,
// including cancellation, ends it.
func repl(ctx context.Context, s *chat.Session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
		case "/quit", "/exit":
			return nil
		case "/transcript":
			for _, t := range s.Transcript() {
				fmt.Fprintln(out, t)
			}
		default:
			reply, err := s.Ask(ctx, line)
			if err != nil {
				var exhausted *chat.RetriesExhaustedError
				if !errors.As(err, &exhausted) {
					return err
				}
				fmt.Fprintln(out, "error:", err)
				break
			}
			fmt.Fprintln(out, reply)
		}
		fmt.Fprint(out, "> ")
	}
	return scanner.Err()
}

const colourPrompt = "Pick a color at random and then just tell me your choice, e.g. 'red'"

// colourSentences asks for n colours in one request and then one sentence
// per colour. Colours whose follow-up yields nothing are skipped.
func colourSentences(ctx context.Context, gen chat.Completer, n int) ([]string, error) {
	colours, err := gen.Generate(ctx, chat.History{chat.UserMessage(colourPrompt)}, n)
	if err != nil {
		return nil, err
	}
	var out []string
	for colour := range colours.All() {
		prompt := fmt.Sprintf("Write a sentence about the color %s.", colour.Content())
		c, err := gen.Generate(ctx, chat.History{chat.UserMessage(prompt)}, 1)
		if err != nil {
			return out, err
		}
		if msg, ok := chat.NextCompletion(c); ok {
			out = append(out, msg.Content())
		}
	}
	return out, nil
}
