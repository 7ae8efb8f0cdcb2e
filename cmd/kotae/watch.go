package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	var serverURL string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Manage the directories a running server watches",
	}
	cmd.PersistentFlags().StringVar(&serverURL, "server", defaultServerURL, "server URL")
	client := &http.Client{Timeout: 30 * time.Second}
	endpoint := func() string { return strings.TrimRight(serverURL, "/") + "/api/v1/watch/directories" }

	var noSync bool
	add := &cobra.Command{
		Use:   "add <path>",
		Short: "Watch a directory and ingest its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			sync := !noSync
			body, _ := json.Marshal(map[string]interface{}{"path": path, "sync": sync})
			resp, err := client.Post(endpoint(), "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusCreated {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("add failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added: %s\n", path)
			return nil
		},
	}
	add.Flags().BoolVar(&noSync, "no-sync", false, "do not ingest files already in the directory")

	remove := &cobra.Command{
		Use:   "remove <path>",
		Short: "Stop watching a directory; ingested documents are kept",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			req, err := http.NewRequest(http.MethodDelete, endpoint()+"?path="+url.QueryEscape(path), nil)
			if err != nil {
				return err
			}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("remove failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed: %s\n", path)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List watched directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := client.Get(endpoint())
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				b, _ := io.ReadAll(resp.Body)
				return fmt.Errorf("list failed (%d): %s", resp.StatusCode, strings.TrimSpace(string(b)))
			}
			var out struct {
				Directories []string `json:"directories"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
				return fmt.Errorf("parse failed: %w", err)
			}
			for _, d := range out.Directories {
				fmt.Fprintln(cmd.OutOrStdout(), d)
			}
			return nil
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}
