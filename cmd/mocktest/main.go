package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/ibreez3/ai-chat/chat"
	"github.com/ibreez3/ai-chat/service"
)

// FlakyBackend fails the first Failures calls with a 503 and then answers
// square-root questions.
type FlakyBackend struct {
	Failures int

	mu    sync.Mutex
	calls int
}

func (b *FlakyBackend) Create(_ context.Context, req chat.Request) (chat.Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	if b.calls <= b.Failures {
		return chat.Response{}, &chat.APIError{StatusCode: 503, Message: "service unavailable"}
	}
	last, _ := req.Messages.Last()
	reply := "16"
	if strings.Contains(strings.ToLower(last.Content()), "working") {
		reply = "16 * 16 = 256"
	}
	return chat.Response{Choices: []chat.Message{chat.AssistantMessage(reply)}}, nil
}

func (b *FlakyBackend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

func main() {
	log, err := service.NewLogger("debug", "text")
	if err != nil {
		fmt.Println("logger:", err)
		os.Exit(1)
	}
	backend := &FlakyBackend{Failures: 2}
	opts := chat.DefaultOptions()
	opts.RetryBaseDelay = 10 * time.Millisecond

	gen, err := chat.NewGenerator(backend, opts)
	if err != nil {
		fmt.Println("generator:", err)
		os.Exit(1)
	}
	gen.WithLogger(log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	s := chat.NewSession(gen)
	for _, q := range []string{"What is the square root of 256?", "Show your working"} {
		reply, err := s.Ask(ctx, q)
		if err != nil {
			fmt.Println("ask failed:", err)
			os.Exit(1)
		}
		fmt.Println(reply)
	}

	if got := backend.Calls(); got != 4 {
		fmt.Println("unexpected backend calls:", got)
		os.Exit(2)
	}
	want := []string{"What is the square root of 256?", "16", "Show your working", "16 * 16 = 256"}
	if got := s.Transcript(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		fmt.Printf("unexpected transcript: %q\n", got)
		os.Exit(3)
	}
	fmt.Println("retry verification passed:", backend.Calls(), "calls")
}
