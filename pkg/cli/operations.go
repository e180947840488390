package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/soapcall/soapcall/pkg/wsdl"
)

var operationsCmd = &cobra.Command{
	Use:   "operations",
	Short: "List the operations a WSDL declares",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile()
		if err != nil {
			return err
		}
		if p.WSDL == "" {
			return fmt.Errorf("operations requires a WSDL (--wsdl or config)")
		}

		ctx := cmd.Context()
		doc, err := loadWSDL(ctx, p, newCachingLoader())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Service:  %s\n", doc.Name())
		fmt.Fprintf(out, "Endpoint: %s\n", doc.Endpoint())
		fmt.Fprintf(out, "Namespace: %s\n\n", doc.TargetNamespace())
		for _, name := range doc.OperationNames() {
			op, _ := doc.Lookup(name)
			action := op.SOAPAction
			if action == "" {
				action = "-"
			}
			fmt.Fprintf(out, "%-30s style=%-9s action=%s\n", name, op.Style, action)
			printMessage(out, doc, "in", op.Input)
			printMessage(out, doc, "out", op.Output)
		}
		return nil
	},
}

// printMessage lists a message's parts with the element or type each one
// references.
func printMessage(out io.Writer, doc *wsdl.Document, dir, name string) {
	if name == "" {
		return
	}
	msg, ok := doc.MessageFor(name)
	if !ok {
		return
	}
	for _, part := range msg.Parts {
		ref := part.Element
		if ref.IsZero() {
			ref = part.Type
		}
		fmt.Fprintf(out, "  %-3s %s/%s -> %s\n", dir, msg.Name, part.Name, ref)
	}
}

func init() {
	rootCmd.AddCommand(operationsCmd)
}
