// Copyright (c) Microsoft. All rights reserved.

// Command agentcli chats with a configured agent on the terminal.
//
// Usage:
//
//	export AZURE_FOUNDRY_PROJECT_ENDPOINT=https://<resource>.services.ai.azure.com/api/projects/<project>
//	export AZURE_FOUNDRY_DEPLOYMENT=gpt-4o
//	go run ./cmd/agentcli                       # talks to GeographyAgent
//	go run ./cmd/agentcli -agent GlobalAgent
//
// Type 'x' to exit.
package main

import (
	"bufio"
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/microsoft/foundry-agents/go/internal/app"
	"github.com/microsoft/foundry-agents/go/internal/config"
	"github.com/microsoft/foundry-agents/go/internal/console"
	"github.com/microsoft/foundry-agents/go/internal/conversation"
	"github.com/microsoft/foundry-agents/go/internal/response"
)

type asker interface {
	Ask(ctx context.Context, req conversation.AskRequest) (*response.AgentResponse, error)
}

func main() {
	envFile := flag.String("env", ".env", "dotenv file to load (ignored if missing)")
	agentType := flag.String("agent", string(config.GeographyAgent), "agent role from the configuration")
	flag.Parse()

	config.LoadEnv(*envFile)
	settings := config.LoadSettings()

	// Logs stay off the chat unless DEBUG is set.
	logOut := io.Discard
	if settings.Debug {
		logOut = os.Stderr
	}
	logger := app.NewLogger(settings, logOut)
	slog.SetDefault(logger)

	con := console.Stdout()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, settings, app.WithConsole(con), app.WithLogger(logger))
	if err != nil {
		con.SystemLine("Error: " + err.Error())
		os.Exit(1)
	}
	defer a.Close()

	if err := chat(ctx, os.Stdin, con, a.Conversation, *agentType); err != nil && ctx.Err() == nil {
		con.SystemLine("Error: " + err.Error())
		os.Exit(1)
	}
}

// chat reads questions from in until 'x' or end of input. The thread of the
// first answer is reused for the rest of the session.
func chat(ctx context.Context, in io.Reader, con *console.Console, svc asker, agentType string) error {
	con.SystemLine("Ask me a question (or press 'x' to exit):")

	var agentID, threadID string
	scanner := bufio.NewScanner(in)
	for {
		con.Prompt("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			continue
		}
		if strings.EqualFold(question, "x") {
			con.SystemLine("Goodbye!")
			return nil
		}

		resp, err := svc.Ask(ctx, conversation.AskRequest{
			Message:   question,
			ThreadID:  threadID,
			AgentID:   agentID,
			AgentType: agentType,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			con.SystemLine("Error: " + err.Error())
			continue
		}
		agentID, threadID = resp.AgentID, resp.ThreadID
		con.AssistantLine(resp.Text())
		con.EmptyLine()
	}
	return scanner.Err()
}
