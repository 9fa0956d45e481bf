package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/cuemby/tracething/pkg/storage"
	"github.com/spf13/cobra"
)

// Document commands
var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Manage documents served by the doc source",
	Long: `Manage the local documents served under <id>.doc.<zone>.

The responder holds the database lock while serving, so stop it before
editing documents.`,
}

var docPutCmd = &cobra.Command{
	Use:   "put ID",
	Short: "Create or replace a document",
	Long: `Create or replace a document. The body is read from --file, or from
stdin when --file is not given.

Examples:
  tracething doc put motd --file motd.txt
  echo "hello from the zone" | tracething doc put motd`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")

		var (
			body []byte
			err  error
		)
		if file != "" {
			body, err = os.ReadFile(file)
		} else {
			body, err = io.ReadAll(cmd.InOrStdin())
		}
		if err != nil {
			return fmt.Errorf("failed to read document body: %w", err)
		}

		return withStore(cmd, func(store storage.Store) error {
			if err := store.PutDocument(&storage.Document{ID: args[0], Body: string(body)}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Document stored: %s (%d bytes)\n", args[0], len(body))
			return nil
		})
	},
}

var docGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Print a document body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store storage.Store) error {
			doc, err := store.GetDocument(args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("document not found: %s", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), doc.Body)
			return nil
		})
	},
}

var docListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store storage.Store) error {
			docs, err := store.ListDocuments()
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No documents")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tBYTES\tUPDATED")
			for _, doc := range docs {
				fmt.Fprintf(w, "%s\t%d\t%s\n", doc.ID, len(doc.Body), doc.UpdatedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		})
	},
}

var docRmCmd = &cobra.Command{
	Use:     "rm ID",
	Aliases: []string{"delete"},
	Short:   "Remove a document",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store storage.Store) error {
			err := store.DeleteDocument(args[0])
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("document not found: %s", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Document removed: %s\n", args[0])
			return nil
		})
	},
}

func init() {
	docCmd.AddCommand(docPutCmd)
	docCmd.AddCommand(docGetCmd)
	docCmd.AddCommand(docListCmd)
	docCmd.AddCommand(docRmCmd)
	docCmd.AddCommand(docApplyCmd)

	docCmd.PersistentFlags().String("data", "", "Document database (default: storage.path from config)")
	docPutCmd.Flags().StringP("file", "f", "", "Read the body from a file instead of stdin")
}

// withStore opens the document database named by --data or the config file
func withStore(cmd *cobra.Command, fn func(storage.Store) error) error {
	path, _ := cmd.Flags().GetString("data")
	if path == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path = cfg.Storage.Path
	}

	store, err := storage.NewBoltStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(store)
}
