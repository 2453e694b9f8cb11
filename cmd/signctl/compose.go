package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/countersign/internal/adapters/driven/pdf"
	"github.com/custodia-labs/countersign/internal/core/services"
)

func newComposeCmd() *cobra.Command {
	var pdfPath string
	var fieldsPath string
	var outPath string

	command := &cobra.Command{
		Use:     "compose",
		Short:   "draw field values onto a PDF",
		Long:    `compose overlays the value of every field that has one onto the base PDF and writes a new file. The base file is not modified.`,
		Example: "signctl compose --pdf lease.pdf --fields fields.yaml --out signed.pdf",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := os.ReadFile(pdfPath)
			if err != nil {
				return err
			}
			fields, err := loadFields(fieldsPath)
			if err != nil {
				return err
			}

			composer := services.NewComposer(nil, pdf.NewRenderer())
			out, err := composer.Compose(cmd.Context(), base, fields)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outPath, out, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", outPath, len(out))
			return nil
		},
	}

	command.Flags().StringVarP(&pdfPath, "pdf", "p", "", "base PDF")
	command.Flags().StringVarP(&fieldsPath, "fields", "f", "", "YAML file listing the fields and their values")
	command.Flags().StringVarP(&outPath, "out", "o", "", "where to write the composed PDF")
	for _, name := range []string{"pdf", "fields", "out"} {
		_ = command.MarkFlagRequired(name)
	}
	return command
}

func newPagesCmd() *cobra.Command {
	var pdfPath string

	command := &cobra.Command{
		Use:   "pages",
		Short: "print the page sizes of a PDF in points",
		RunE: func(cmd *cobra.Command, args []string) error {
			base, err := os.ReadFile(pdfPath)
			if err != nil {
				return err
			}
			pages, err := pdf.NewRenderer().PageSizes(base)
			if err != nil {
				return err
			}
			for i, p := range pages {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%gx%g\n", i+1, p.Width, p.Height)
			}
			return nil
		},
	}

	command.Flags().StringVarP(&pdfPath, "pdf", "p", "", "PDF to inspect")
	_ = command.MarkFlagRequired("pdf")
	return command
}
