// Package client contains Cobra CLI commands that drive a running SOS
// server over its HTTP API.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// NewSOSCommand constructs the `sos` command group and subcommands.
func NewSOSCommand(baseURL BaseURLFunc) *cobra.Command {
	sosCmd := &cobra.Command{Use: "sos", Short: "SOS session operations"}

	sosCmd.AddCommand(
		newOpenCommand(baseURL),
		newRequestCommand(baseURL),
		newOptInCommand(baseURL),
		newHelpersCommand(baseURL),
		newResolveCommand(baseURL),
		newActiveCommand(baseURL),
	)

	return sosCmd
}

func postJSON(baseURL BaseURLFunc, path string, body any, out io.Writer) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(baseURL()+path, "application/json", bytes.NewReader(b))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	fmt.Fprintln(out, "status:", resp.Status)
	_, err = io.Copy(out, resp.Body)
	return err
}

func getPath(baseURL BaseURLFunc, path string, out io.Writer) error {
	resp, err := http.Get(baseURL() + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	fmt.Fprintln(out, "status:", resp.Status)
	_, err = io.Copy(out, resp.Body)
	return err
}

func newOpenCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a new SOS session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			chatID, _ := cmd.Flags().GetInt64("chat")
			requesterID, _ := cmd.Flags().GetInt64("requester")
			eventID, _ := cmd.Flags().GetUint64("event")
			return postJSON(baseURL, "/v1/sos/open", map[string]any{
				"event_id": eventID, "chat_id": chatID, "requester_id": requesterID,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Int64("chat", 0, "Chat id the session belongs to")
	cmd.Flags().Int64("requester", 0, "Requesting user id")
	cmd.Flags().Uint64("event", 0, "Event id (0 lets the server assign one)")
	return cmd
}

func newRequestCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Record a resource request",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eventID, _ := cmd.Flags().GetUint64("event")
			participantID, _ := cmd.Flags().GetInt64("participant")
			resource, _ := cmd.Flags().GetString("resource")
			return postJSON(baseURL, "/v1/sos/request", map[string]any{
				"event_id": eventID, "participant_id": participantID, "resource": resource,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Uint64("event", 0, "Event id")
	cmd.Flags().Int64("participant", 0, "Participant user id")
	cmd.Flags().String("resource", "", "Resource kind: water|medicine|manpower")
	return cmd
}

func newOptInCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optin",
		Short: "Opt in as a helper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eventID, _ := cmd.Flags().GetUint64("event")
			participantID, _ := cmd.Flags().GetInt64("participant")
			return postJSON(baseURL, "/v1/sos/optin", map[string]any{
				"event_id": eventID, "participant_id": participantID,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Uint64("event", 0, "Event id")
	cmd.Flags().Int64("participant", 0, "Participant user id")
	return cmd
}

func newHelpersCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "helpers",
		Short: "List helpers for a session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eventID, _ := cmd.Flags().GetUint64("event")
			return getPath(baseURL, fmt.Sprintf("/v1/sos/helpers?event_id=%d", eventID), cmd.OutOrStdout())
		},
	}
	cmd.Flags().Uint64("event", 0, "Event id")
	return cmd
}

func newResolveCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Close a session (requester only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eventID, _ := cmd.Flags().GetUint64("event")
			participantID, _ := cmd.Flags().GetInt64("participant")
			return postJSON(baseURL, "/v1/sos/resolve", map[string]any{
				"event_id": eventID, "participant_id": participantID,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Uint64("event", 0, "Event id")
	cmd.Flags().Int64("participant", 0, "Acting user id")
	return cmd
}

func newActiveCommand(baseURL BaseURLFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "active",
		Short: "List active sessions, optionally filtered by a CEL expression",
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, _ := cmd.Flags().GetString("filter")
			path := "/v1/sos/active"
			if filter != "" {
				path += "?filter=" + url.QueryEscape(filter)
			}
			return getPath(baseURL, path, cmd.OutOrStdout())
		},
	}
	cmd.Flags().String("filter", "", "CEL filter, e.g. 'helpers > 0'")
	return cmd
}
