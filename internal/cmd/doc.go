package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
	"github.com/otiai10/copy"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/stateful/labdoc/internal/config"
	"github.com/stateful/labdoc/internal/config/autoconfig"
	"github.com/stateful/labdoc/pkg/document"
	"github.com/stateful/labdoc/pkg/document/identity"
	"github.com/stateful/labdoc/pkg/store"
)

func docCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:     "doc",
		Aliases: []string{"docs"},
		Short:   "Manage documents in the local store.",
		Long: `Manage documents kept in the store directory configured by store.dir.
Documents are referred to by id or by the slug of their title.`,
	}

	cmd.AddCommand(docNewCmd())
	cmd.AddCommand(docListCmd())
	cmd.AddCommand(docShowCmd())
	cmd.AddCommand(docSaveCmd())
	cmd.AddCommand(docRemoveCmd())
	cmd.AddCommand(docBackupCmd())

	return &cmd
}

func docNewCmd() *cobra.Command {
	var title string

	cmd := cobra.Command{
		Use:   "new [FILE]",
		Short: "Store a new document.",
		Long: `Store a new document. Without FILE the document holds a single empty
heading. FILE may be "-" to read from stdin.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(s *store.FS) error {
				var doc *document.Document
				if len(args) == 0 {
					doc = &document.Document{
						Version: document.Version,
						Blocks:  document.Blocks{document.NewBlock(identity.NewGenerator("").Next(nil), document.TypeHeading)},
					}
				} else {
					var err error
					if doc, _, err = loadDocument(cmd, args[0]); err != nil {
						return err
					}
				}
				if title != "" {
					doc.Title = title
				}

				rec, err := s.Create(cmd.Context(), doc)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return errors.WithStack(err)
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Title of the document.")

	return &cmd
}

func docListCmd() *cobra.Command {
	var (
		format   string
		patterns []string
	)

	cmd := cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List stored documents, most recently updated first.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			globs, err := parseGlobs(patterns)
			if err != nil {
				return err
			}
			return autoconfig.Invoke(func(s *store.FS) error {
				items, err := s.List(cmd.Context())
				if err != nil {
					return err
				}
				items = matchSummaries(items, globs)
				if format == "json" {
					return printJSON(cmd, items)
				}

				table := newTable(cmd, "ID", "Slug", "Title", "Blocks", "Updated")
				for _, item := range items {
					table.AddField(item.ID)
					table.AddField(item.Slug)
					table.AddField(item.Title)
					table.AddField(fmt.Sprint(item.Blocks))
					table.AddField(item.UpdatedAt.Local().Format(time.DateTime))
					table.EndRow()
				}
				return errors.WithStack(table.Render())
			})
		},
	}

	addFormatFlag(cmd.Flags(), &format)
	cmd.Flags().StringArrayVar(&patterns, "match", nil, "Only list documents whose slug or title matches the glob pattern.")

	return &cmd
}

func parseGlobs(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid pattern %q", p)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

// matchSummaries keeps the items matching any of globs. No globs keep all.
func matchSummaries(items []store.Summary, globs []glob.Glob) []store.Summary {
	if len(globs) == 0 {
		return items
	}
	result := items[:0:0]
	for _, item := range items {
		for _, g := range globs {
			if g.Match(item.Slug) || g.Match(item.Title) {
				result = append(result, item)
				break
			}
		}
	}
	return result
}

func docShowCmd() *cobra.Command {
	var output string

	cmd := cobra.Command{
		Use:   "show REF",
		Short: "Print a stored document.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(s *store.FS) error {
				rec, err := s.Find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeDocument(cmd, output, rec.Document)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the document to a file instead of stdout.")

	return &cmd
}

func docSaveCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "save REF FILE",
		Short: "Replace a stored document with the content of FILE.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(s *store.FS) error {
				rec, err := s.Find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				doc, _, err := loadDocument(cmd, args[1])
				if err != nil {
					return err
				}
				if doc.Title == "" {
					doc.Title = rec.Title
				}
				rec, err = s.Update(cmd.Context(), rec.ID, doc)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), rec.ID)
				return errors.WithStack(err)
			})
		},
	}
	return &cmd
}

func docRemoveCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:     "rm REF",
		Aliases: []string{"delete"},
		Short:   "Delete a stored document.",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(s *store.FS) error {
				rec, err := s.Find(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return s.Delete(cmd.Context(), rec.ID)
			})
		},
	}
	return &cmd
}

func docBackupCmd() *cobra.Command {
	cmd := cobra.Command{
		Use:   "backup DIR",
		Short: "Copy the store directory to DIR.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return autoconfig.Invoke(func(cfg *config.Config) error {
				if _, err := os.Stat(args[0]); err == nil {
					return errors.Errorf("%s already exists", args[0])
				}
				err := copy.Copy(cfg.Store.Dir, args[0], copy.Options{
					Skip: func(_ os.FileInfo, src, _ string) (bool, error) {
						return filepath.Base(src) == tmpDirName, nil
					},
				})
				return errors.Wrapf(err, "failed to copy %s", cfg.Store.Dir)
			})
		},
	}
	return &cmd
}
