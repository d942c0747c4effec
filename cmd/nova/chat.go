package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vthunder/nova/internal/config"
	"github.com/vthunder/nova/internal/logging"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Nova in the terminal",
	Long: `Start an interactive session. Type a request such as
"lunch with Sam friday at 1" and answer any follow-up questions.
Type quit, exit or q to leave.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	a, err := setup(cmd, config.SurfaceChat)
	if err != nil {
		return err
	}
	defer a.Close()

	// Keep log lines out of the conversation
	logPath := filepath.Join(a.Config.StatePath, "nova.log")
	if f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644); err == nil {
		logging.SetOutput(f)
		defer f.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Nova is ready. Ask about your calendar or tasks (quit to exit).")

	sess := a.Sessions.Get("cli")
	lines := readLines(cmd.InOrStdin())
	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return nil
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				return nil
			}
			line = strings.TrimSpace(l)
		}
		switch strings.ToLower(line) {
		case "":
			continue
		case "quit", "exit", "q":
			return nil
		}

		sess.Lock()
		result := a.Engine.Handle(ctx, sess, line)
		sess.Unlock()
		fmt.Fprintln(out, result.Message)
	}
}

// readLines feeds input lines to a channel so the prompt can also watch for
// a signal
func readLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ch <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logging.Warn("chat", "read input: %v", err)
		}
	}()
	return ch
}
