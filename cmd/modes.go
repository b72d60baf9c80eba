package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/andresmejia3/facecast/internal/api"
	"github.com/spf13/cobra"
)

var modesEndpoint string

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the API modes and the URL each one posts to",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		endpoint := Cfg.Endpoint
		if cmd.Flags().Changed("endpoint") {
			endpoint = modesEndpoint
		}
		return runModes(os.Stdout, endpoint)
	},
}

func init() {
	modesCmd.Flags().StringVarP(&modesEndpoint, "endpoint", "e", "", "Recognition API base URL (default from config)")
	rootCmd.AddCommand(modesCmd)
}

func runModes(out io.Writer, endpoint string) error {
	client, err := api.NewClient(endpoint, nil)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "MODE\tPATH\tURL")
	fmt.Fprintln(w, "----\t----\t---")
	for _, m := range api.Modes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", m, m.Path(), client.Endpoint(m))
	}
	return w.Flush()
}
