package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ideaslabiot/IDEAS-project/version"
)

var (
	_versionAsJSON bool
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version number of the service",

	RunE: func(cmd *cobra.Command, args []string) error {
		return doVersion(cmd)
	},
}

func init() {
	versionCmd.Flags().BoolVar(&_versionAsJSON, "json", false, "Return version as JSON")
	errPanic(viper.GetViper().BindPFlag("version.json", versionCmd.Flags().Lookup("json")))

	rootCmd.AddCommand(versionCmd)
}

type versionResult struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func doVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()

	if viper.GetBool("version.json") {
		v := versionResult{
			Name:    version.Name,
			Version: version.Version,
		}

		b, err := json.MarshalIndent(v, "", "    ")
		if err != nil {
			return err
		}

		fmt.Fprintln(out, string(b))
	} else {
		fmt.Fprintf(out, "%s version %s\n", version.Name, version.Version)
	}

	return nil
}
