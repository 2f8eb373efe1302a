package main

import (
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/staffline/boond-sync/pkg/boond"
)

// -- get --

var getCmd = &cobra.Command{
	Use:   "get <type> <id>",
	Short: "Fetch one candidate, resource, project or document",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := initApp(cmd.Context(), "client", false)
		if err != nil {
			return err
		}
		defer app.Close()

		c, _, err := app.Client()
		if err != nil {
			return err
		}
		rt, err := boond.ParseResourceType(args[0])
		if err != nil {
			return err
		}
		id, err := boond.ParseID(args[1])
		if err != nil {
			return err
		}
		tab, _ := cmd.Flags().GetString("tab")
		view, err := boond.ParseDetailView(tab)
		if err != nil {
			return err
		}

		ent, err := c.Get(cmd.Context(), rt, id, view)
		if err != nil {
			return eris.Wrap(err, "get")
		}
		return printOutput(os.Stdout, outputFlag, ent)
	},
}

// -- list --

var listCmd = &cobra.Command{
	Use:   "list <type>",
	Short: "List candidates, resources or projects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := initApp(cmd.Context(), "client", false)
		if err != nil {
			return err
		}
		defer app.Close()

		c, _, err := app.Client()
		if err != nil {
			return err
		}
		rt, err := boond.ParseResourceType(args[0])
		if err != nil {
			return err
		}

		all, _ := cmd.Flags().GetBool("all")
		if all {
			records := []boond.Record{}
			err := boond.ListAll(cmd.Context(), c, rt, cfg.Sync.PageSize, func(p *boond.Page) error {
				records = append(records, p.Data...)
				return nil
			})
			if err != nil {
				return eris.Wrap(err, "list")
			}
			return printOutput(os.Stdout, outputFlag, records)
		}

		filter := boond.ListFilter{}
		filter.Page, _ = cmd.Flags().GetInt("page")
		filter.MaxResults, _ = cmd.Flags().GetInt("max-results")
		filter.Keywords, _ = cmd.Flags().GetString("keywords")
		filter.State, _ = cmd.Flags().GetString("state")
		filter.Company, _ = cmd.Flags().GetString("company")

		page, err := c.List(cmd.Context(), rt, filter)
		if err != nil {
			return eris.Wrap(err, "list")
		}
		return printOutput(os.Stdout, outputFlag, page)
	},
}

// -- resumes --

var resumesCmd = &cobra.Command{
	Use:   "resumes <type> <id>",
	Short: "List the resumes attached to a candidate or resource",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := initApp(cmd.Context(), "client", false)
		if err != nil {
			return err
		}
		defer app.Close()

		c, _, err := app.Client()
		if err != nil {
			return err
		}
		rt, err := boond.ParseResourceType(args[0])
		if err != nil {
			return err
		}
		id, err := boond.ParseID(args[1])
		if err != nil {
			return err
		}

		docs, err := c.GetResumes(cmd.Context(), rt, id)
		if err != nil {
			return eris.Wrap(err, "resumes")
		}
		return printOutput(os.Stdout, outputFlag, docs)
	},
}

// -- download --

var downloadCmd = &cobra.Command{
	Use:   "download <document-id>",
	Short: "Download a document",
	Long:  "Downloads a document to --file, to its own name in the current directory when --file is empty, or to stdout with --file -.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := initApp(cmd.Context(), "client", false)
		if err != nil {
			return err
		}
		defer app.Close()

		c, env, err := app.Client()
		if err != nil {
			return err
		}
		id, err := boond.ParseID(args[0])
		if err != nil {
			return err
		}

		doc, err := c.DownloadDocument(cmd.Context(), id)
		if err != nil {
			return eris.Wrap(err, "download")
		}

		path, _ := cmd.Flags().GetString("file")
		if path == "-" {
			_, err := os.Stdout.Write(doc.Data)
			return err
		}
		if path == "" {
			path = filepath.Base(doc.Name)
		}
		if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
			return eris.Wrapf(err, "write %s", path)
		}
		zap.L().Info("document downloaded",
			zap.String("environment", string(env)),
			zap.Int64("document_id", int64(id)),
			zap.String("path", path),
			zap.String("mime_type", doc.MIMEType),
			zap.Int("bytes", len(doc.Data)),
		)
		return nil
	},
}

func init() {
	getCmd.Flags().String("tab", "", "detail tab: information, actions, deliveries, projects or documents")

	listCmd.Flags().Int("page", 1, "page number")
	listCmd.Flags().Int("max-results", 100, "records per page (max 500)")
	listCmd.Flags().String("keywords", "", "free-text search")
	listCmd.Flags().String("state", "", "state filter")
	listCmd.Flags().String("company", "", "company filter")
	listCmd.Flags().Bool("all", false, "follow pagination and print every record")

	downloadCmd.Flags().StringP("file", "f", "", "output path, - for stdout")

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(resumesCmd)
	rootCmd.AddCommand(downloadCmd)
}
