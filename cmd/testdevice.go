package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/credentials"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/plugapi"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/smoketest"
)

var _testDeviceCmdOpts struct {
	toggleDelay   time.Duration
	concurrency   int
	deviceTimeout time.Duration
}

var testDeviceCmd = &cobra.Command{
	Use:   "test-device [address...]",
	Short: "Manually check one or more plugs end to end (switches them off and on)",
	Long: "Connects to each plug, prints its details, switches it off, waits, switches it\n" +
		"back on and reads an energy sample.  Checks " + smoketest.DefaultAddress + " when no address is given.",

	RunE: func(cmd *cobra.Command, args []string) error {
		return doTestDevice(args)
	},
}

func init() {
	testDeviceCmd.Flags().DurationVar(&_testDeviceCmdOpts.toggleDelay, "toggle-delay", time.Second*2, "time to leave the plug off, eg. 2s")
	testDeviceCmd.Flags().IntVar(&_testDeviceCmdOpts.concurrency, "concurrency", 1, "number of plugs to check at once")
	testDeviceCmd.Flags().DurationVar(&_testDeviceCmdOpts.deviceTimeout, "device-timeout", 0, "maximum duration of a plug call, 0 to wait as long as the plug takes")

	errPanic(viper.GetViper().BindPFlag("smoketest.toggle-delay", testDeviceCmd.Flags().Lookup("toggle-delay")))
	errPanic(viper.GetViper().BindPFlag("smoketest.concurrency", testDeviceCmd.Flags().Lookup("concurrency")))
	errPanic(viper.GetViper().BindPFlag("smoketest.device-timeout", testDeviceCmd.Flags().Lookup("device-timeout")))

	rootCmd.AddCommand(testDeviceCmd)
}

func doTestDevice(addresses []string) error {
	creds := credentials.FromConfig(viper.GetViper())
	plugClient := plugapi.NewLiveClient(creds).WithTimeout(viper.GetDuration("smoketest.device-timeout"))

	runner := smoketest.NewRunner(plugClient, creds.Username()).
		WithToggleDelay(viper.GetDuration("smoketest.toggle-delay")).
		WithConcurrency(viper.GetInt("smoketest.concurrency"))

	// ctrl-c abandons the remaining steps
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	return runner.Run(ctx, os.Stdout, addresses)
}
