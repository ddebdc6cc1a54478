// Command chat talks to a chat-completion endpoint from the terminal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ibreez3/ai-chat/chat"
	"github.com/ibreez3/ai-chat/config"
	"github.com/ibreez3/ai-chat/service"
)

var (
	configPath  string
	model       string
	temperature float64
	maxTokens   int
	maxRetries  int
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat completions with transparent retries",
	Long: `chat sends conversations to an OpenAI-compatible endpoint and retries
transient failures with exponential backoff.

  chat ask "What is the square root of 256?" "Show your working"
  chat repl --system "You are terse"
  chat complete --n 3 "Pick a colour"
  chat pipeline --n 10`,
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "path to config.yaml")
	f.StringVar(&model, "model", "", "model name")
	f.Float64Var(&temperature, "temperature", 0, "sampling temperature")
	f.IntVar(&maxTokens, "max-tokens", 0, "maximum tokens per completion")
	f.IntVar(&maxRetries, "max-retries", 0, "retries on transient errors")
	f.BoolVarP(&verbose, "verbose", "v", false, "log retries to stderr")

	rootCmd.AddCommand(askCmd, replCmd, completeCmd, pipelineCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config and applies any flags the user set.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.OpenAI.Model = model
	}
	if flags.Changed("temperature") {
		cfg.OpenAI.Temperature = temperature
	}
	if flags.Changed("max-tokens") {
		cfg.OpenAI.MaxTokens = maxTokens
	}
	if flags.Changed("max-retries") {
		cfg.OpenAI.MaxRetries = maxRetries
	}
	return cfg, cfg.Validate()
}

func newGenerator(cfg config.Config) (*chat.Generator, error) {
	level, format := cfg.Log.Level, cfg.Log.Format
	if !verbose {
		level = logrus.ErrorLevel.String()
	}
	log, err := service.NewLogger(level, format)
	if err != nil {
		return nil, err
	}
	return service.NewGenerator(cfg, log)
}
