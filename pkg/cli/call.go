package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soapcall/soapcall/pkg/soap"
)

var (
	callParams     []string
	callParamsFile string
	callAction     string
	callAttach     []string
	callFind       string
)

var callCmd = &cobra.Command{
	Use:   "call <operation>",
	Short: "Resolve, build, and dispatch a SOAP call",
	Long: `Resolve the operation, build its envelope, POST it, and print the decoded
response body. Parameters come from repeated --param key=value flags (order
preserved) or a YAML file via --params.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := profile()
		if err != nil {
			return err
		}
		logger := newLogger(p)

		ctx := cmd.Context()
		client, err := buildClient(ctx, p, logger)
		if err != nil {
			return err
		}

		params, err := gatherParams()
		if err != nil {
			return err
		}
		opts, err := gatherCallOptions()
		if err != nil {
			return err
		}

		resp, err := client.Call(ctx, args[0], params, opts...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if callFind != "" {
			fmt.Fprintln(out, resp.Find(callFind))
			return nil
		}
		fmt.Fprintln(out, resp.Body)
		for _, a := range resp.Attachments {
			fmt.Fprintf(cmd.ErrOrStderr(), "attachment %s (%s): %d bytes\n",
				a.ContentID, a.ContentType, len(a.Content))
		}
		return nil
	},
}

func init() {
	callCmd.Flags().StringArrayVarP(&callParams, "param", "p", nil, "Parameter key=value; repeatable, order preserved")
	callCmd.Flags().StringVar(&callParamsFile, "params", "", "YAML file with the parameter structure")
	callCmd.Flags().StringVarP(&callAction, "action", "a", "", "SOAP action override")
	callCmd.Flags().StringArrayVar(&callAttach, "attach", nil, "File to attach; repeatable")
	callCmd.Flags().StringVar(&callFind, "find", "", "Print only the text at this path in the response body")
	rootCmd.AddCommand(callCmd)
}

// gatherParams builds the ordered parameter mapping from --params and
// --param, in that order.
func gatherParams() (soap.Mapping, error) {
	var params soap.Mapping
	if callParamsFile != "" {
		data, err := os.ReadFile(callParamsFile)
		if err != nil {
			return nil, fmt.Errorf("read params file: %w", err)
		}
		params, err = soap.ParamsFromYAML(data)
		if err != nil {
			return nil, err
		}
	}
	for _, kv := range callParams {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --param %q: expected key=value", kv)
		}
		params = append(params, soap.P(key, soap.Scalar(value)))
	}
	return params, nil
}

func gatherCallOptions() ([]soap.CallOption, error) {
	var opts []soap.CallOption
	if callAction != "" {
		opts = append(opts, soap.Action(callAction))
	}
	for _, path := range callAttach {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}
		opts = append(opts, soap.Attach(soap.Attachment{
			ContentID: filepath.Base(path),
			Content:   content,
		}))
	}
	return opts, nil
}
