package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/dotion/internal/chat"
	"github.com/teemow/dotion/internal/client"
)

func newChatCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to a running dotion server from the terminal",
		Long: `Open an interactive chat session against a running dotion server.

Assistant text streams to the terminal as it arrives; executed tool results
are summarized after each turn. The session ends on EOF (Ctrl-D).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, strings.TrimRight(serverURL, "/"))
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", "http://localhost:3000", "base URL of the dotion server")
	return cmd
}

func runChat(cmd *cobra.Command, serverURL string) error {
	out := cmd.OutOrStdout()
	consumer := &client.Consumer{
		OnText:    func(s string) { fmt.Fprint(out, s) },
		OnRefresh: func() { fmt.Fprint(out, "\n[calendar updated]") },
	}

	var transcript []chat.Message
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		transcript = append(transcript, chat.Message{Role: chat.RoleUser, Content: line})

		updated, err := runTurn(cmd, serverURL, consumer, transcript)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "\nerror: %v\n", err)
			continue
		}
		transcript = updated

		for _, msg := range transcript[len(transcript)-1:] {
			if msg.ToolData != nil {
				fmt.Fprintf(out, "\n[%s card]", msg.ToolData.Type)
			}
		}
		fmt.Fprintln(out)
	}
}

func runTurn(cmd *cobra.Command, serverURL string, consumer *client.Consumer, transcript []chat.Message) ([]chat.Message, error) {
	body, err := json.Marshal(map[string]any{"messages": transcript})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost,
		serverURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	return consumer.Consume(cmd.Context(), resp.Body, transcript)
}
