// signctl works with signing configurations offline: it checks the signing
// order a set of recipients produces and composes field values onto a PDF.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "signctl",
		Short: "offline tools for countersign signing configurations",
		Example: `signctl order --recipients recipients.yaml --signed r1
signctl compose --pdf lease.pdf --fields fields.yaml --out signed.pdf
signctl pages --pdf lease.pdf`,
		SilenceUsage: true,
	}
	root.AddCommand(newOrderCmd())
	root.AddCommand(newComposeCmd())
	root.AddCommand(newPagesCmd())
	root.CompletionOptions.HiddenDefaultCmd = true
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
