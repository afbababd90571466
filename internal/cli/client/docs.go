package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// DocLink is one navigable document.
type DocLink struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// SectionGroup groups documents under a section heading.
type SectionGroup struct {
	Section   string    `json:"section"`
	Documents []DocLink `json:"documents"`
}

// Document is a reconstructed source document.
type Document struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Section string `json:"section"`
	Content string `json:"content"`
}

// DocsCmd creates the docs command.
func DocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs [slug]",
		Short: "Browse the documentation corpus",
		Long:  "Without arguments, lists the corpus navigation grouped by section. With a slug, prints the reconstructed document.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			if len(args) == 0 {
				return runDocsList(cmd, outputJSON)
			}
			return runDocsGet(cmd, args[0], outputJSON)
		},
	}
}

func runDocsList(cmd *cobra.Command, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/api/docs")
	if err != nil {
		return fmt.Errorf("failed to list docs: %w", err)
	}

	var groups []SectionGroup
	if err := json.Unmarshal(resp.Data, &groups); err != nil {
		return fmt.Errorf("failed to parse docs list: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(groups, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(groups) == 0 {
		fmt.Println("No documents found.")
		return nil
	}

	for _, group := range groups {
		fmt.Printf("%s\n", group.Section)
		for _, doc := range group.Documents {
			fmt.Printf("  %s (%s)\n", doc.Title, doc.Slug)
		}
	}

	return nil
}

func runDocsGet(cmd *cobra.Command, slug string, outputJSON bool) error {
	api, err := NewAPIClientWithCmd(cmd)
	if err != nil {
		return err
	}

	resp, err := api.Get("/api/docs/" + slug)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(resp.Data, &doc); err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(doc, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("# %s [%s]\n\n%s\n", doc.Title, doc.Section, doc.Content)
	return nil
}
