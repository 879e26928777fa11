package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/recipe-importer/internal/jobs"
)

var (
	importUserID   string
	importHTMLFile string
)

var importCmd = &cobra.Command{
	Use:   "import [url]",
	Short: "Queue a recipe import from the command line",
	Long:  `Queue a recipe import for a user without going through the API. Pass the recipe page URL as the argument, or --html to import a saved page instead.`,
	Args:  cobra.MaximumNArgs(1),
	RunE:  runImport,
}

func init() {
	importCmd.Flags().StringVar(&importUserID, "user", "", "User ID owning the import (required)")
	importCmd.Flags().StringVar(&importHTMLFile, "html", "", "Path to a saved HTML file to import instead of fetching a URL")
	importCmd.MarkFlagRequired("user") //nolint:errcheck
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(importUserID)
	if err != nil {
		return fmt.Errorf("invalid --user id: %w", err)
	}

	var url, content string
	if len(args) == 1 {
		url = args[0]
	}
	if importHTMLFile != "" {
		data, err := os.ReadFile(importHTMLFile)
		if err != nil {
			return fmt.Errorf("failed to read --html file: %w", err)
		}
		content = string(data)
	}
	if (url == "") == (content == "") {
		return fmt.Errorf("pass either a recipe URL or --html, not both")
	}

	ctx := cmd.Context()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	imp, err := a.database.CreateImport(ctx, userID, url)
	if err != nil {
		return err
	}

	_, err = a.queue.Add(ctx, jobs.QueueNote, jobs.OpImportNote, jobs.NotePayload{
		ImportID: imp.ID,
		UserID:   userID,
		URL:      url,
		Content:  content,
	})
	if err != nil {
		return fmt.Errorf("failed to queue import: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "queued import %s\n", imp.ID)
	return nil
}
