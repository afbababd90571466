package client

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// ChatMessage is one turn of the conversation sent to the server.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents the chat API request.
type ChatRequest struct {
	Messages []ChatMessage `json:"messages"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the documentation",
		Long:  "Sends a question to the chat endpoint and streams the answer to stdout.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, args[0])
		},
	}
}

func runAsk(cmd *cobra.Command, question string) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	req := ChatRequest{
		Messages: []ChatMessage{{Role: "user", Content: question}},
	}

	if err := api.PostStream("/api/chat", req, os.Stdout); err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}
	fmt.Println()

	return nil
}
