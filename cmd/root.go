package cmd

import (
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/credentials"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/logging"
	"github.com/ideaslabiot/IDEAS-project/version"
)

var _rootCmdOpts struct {
	configFile  string
	envFile     string
	debug       bool
	logLocation string
	logFormat   string
	logLevel    string
}

var rootCmd = &cobra.Command{
	Use:   version.Name,
	Short: "HTTP control service for Tapo smart plugs",

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&_rootCmdOpts.configFile, "config", "", "config file (default $HOME/."+version.Name+".yaml)")
	rootCmd.PersistentFlags().StringVar(&_rootCmdOpts.envFile, "env-file", ".env", "file of KEY=value pairs to read "+credentials.UsernameEnv+"/"+credentials.PasswordEnv+" from")
	rootCmd.PersistentFlags().BoolVarP(&_rootCmdOpts.debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&_rootCmdOpts.logLocation, "log-location", "stderr", "stdout, stderr or a file name")
	rootCmd.PersistentFlags().StringVar(&_rootCmdOpts.logFormat, "log-format", "text", "text or json")
	rootCmd.PersistentFlags().StringVar(&_rootCmdOpts.logLevel, "log-level", "info", "minimum level to log")

	errPanic(viper.GetViper().BindPFlag("logging.location", rootCmd.PersistentFlags().Lookup("log-location")))
	errPanic(viper.GetViper().BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format")))
	errPanic(viper.GetViper().BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level")))
	errPanic(credentials.BindEnv(viper.GetViper()))
}

func errPanic(err error) {
	if err != nil {
		panic(err)
	}
}

// Execute runs the selected sub-command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func initConfig() error {
	if _rootCmdOpts.debug {
		logrus.SetLevel(logrus.DebugLevel)
	}

	if _rootCmdOpts.configFile != "" {
		viper.SetConfigFile(_rootCmdOpts.configFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return err
		}

		viper.AddConfigPath(home)
		viper.SetConfigName("." + version.Name)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Only complain about a config file that was asked for
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || _rootCmdOpts.configFile != "" {
			return errors.Wrap(err, "reading config")
		}
	}

	if err := credentials.LoadEnvFile(viper.GetViper(), _rootCmdOpts.envFile); err != nil {
		return err
	}

	if err := logging.Configure(viper.GetViper()); err != nil {
		return err
	}

	if used := viper.ConfigFileUsed(); used != "" {
		logging.Logger(nil).Debugf("using config file %s", filepath.Clean(used))
	}

	return nil
}
