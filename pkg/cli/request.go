package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var requestCmd = &cobra.Command{
	Use:   "request <operation>",
	Short: "Build a call and print it without sending",
	Long: `Resolve the operation and build the exact HTTP request that call would
send, then print method, URL, headers, and body instead of dispatching it.`,
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

		req, err := client.Request(ctx, args[0], params, opts...)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", req.Method, req.URL)
		keys := make([]string, 0, len(req.Header))
		for key := range req.Header {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			for _, value := range req.Header[key] {
				fmt.Fprintf(out, "%s: %s\n", key, value)
			}
		}
		fmt.Fprintf(out, "\n%s\n", req.Body)
		return nil
	},
}

func init() {
	requestCmd.Flags().StringArrayVarP(&callParams, "param", "p", nil, "Parameter key=value; repeatable, order preserved")
	requestCmd.Flags().StringVar(&callParamsFile, "params", "", "YAML file with the parameter structure")
	requestCmd.Flags().StringVarP(&callAction, "action", "a", "", "SOAP action override")
	requestCmd.Flags().StringArrayVar(&callAttach, "attach", nil, "File to attach; repeatable")
	rootCmd.AddCommand(requestCmd)
}
