package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vnkhanh/erp-questionnaire/questionnaire"
	"github.com/vnkhanh/erp-questionnaire/services"
	"github.com/vnkhanh/erp-questionnaire/utils"
)

// NewImportCmd loads questions from a CSV file.
func NewImportCmd(configPath *string) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import-questions",
		Short: "Import questions from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			res, err := a.importer.Import(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d questions into forms %v\n", res.Inserted, res.Forms)
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "question CSV")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// NewExportCmd writes a response workbook to disk.
func NewExportCmd(configPath *string) *cobra.Command {
	var form, format, out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export responses for a form, or all forms",
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := parseScope(form)
			if err != nil {
				return err
			}
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.Close()

			wb, err := a.exporter.Export(cmd.Context(), scope, strings.ToLower(format))
			if err != nil {
				return err
			}
			path := out
			if path == "" {
				path = wb.Filename
			} else if info, err := os.Stat(path); err == nil && info.IsDir() {
				path = filepath.Join(path, wb.Filename)
			}
			if err := os.WriteFile(path, wb.Data, 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&form, "form", "all", `form id or "all"`)
	cmd.Flags().StringVar(&format, "format", services.FormatXLSX, "xlsx or csv")
	cmd.Flags().StringVar(&out, "out", "", "output file or directory")
	return cmd
}

func parseScope(raw string) (questionnaire.FormID, error) {
	if raw == "" || strings.EqualFold(raw, "all") {
		return questionnaire.AllForms, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid form id %q", raw)
	}
	return questionnaire.FormID(n), nil
}

// NewHashPasswordCmd prints a bcrypt hash for the admins section of the config.
func NewHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for an admin password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := utils.HashPassword(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
