package cmd

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/credentials"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/handlers"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/logging"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/plugapi"
	"github.com/ideaslabiot/IDEAS-project/pkg/middlewares"
)

var _serverCmdOpts struct {
	listenAddr      string
	httpPort        uint16
	gracefulTimeout time.Duration
	readTimeout     time.Duration
	writeTimeout    time.Duration
	deviceTimeout   time.Duration
	logRequests     bool
}

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the plug control web server",

	RunE: func(cmd *cobra.Command, args []string) error {
		if err := doServer(); err != nil {
			return err
		}

		return nil
	},
}

func init() {
	serverCmd.Flags().StringVar(&_serverCmdOpts.listenAddr, "listen-addr", "0.0.0.0", "address to listen on")
	serverCmd.Flags().Uint16Var(&_serverCmdOpts.httpPort, "port", 5000, "HTTP port number")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.gracefulTimeout, "graceful-timeout", time.Second*15, "duration to wait for server to finish, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.readTimeout, "read-timeout", time.Second*15, "duration to wait for request read, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.writeTimeout, "write-timeout", time.Second*60, "duration to wait for request write, eg. 1m or 10s")
	serverCmd.Flags().DurationVar(&_serverCmdOpts.deviceTimeout, "device-timeout", 0, "maximum duration of a plug call, 0 to wait as long as the plug takes")
	serverCmd.Flags().BoolVar(&_serverCmdOpts.logRequests, "log-requests", false, "log requests and responses (only in debug mode)")

	errPanic(viper.GetViper().BindPFlag("http.listen-addr", serverCmd.Flags().Lookup("listen-addr")))
	errPanic(viper.GetViper().BindPFlag("http.port", serverCmd.Flags().Lookup("port")))
	errPanic(viper.GetViper().BindPFlag("http.graceful-timeout", serverCmd.Flags().Lookup("graceful-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.read-timeout", serverCmd.Flags().Lookup("read-timeout")))
	errPanic(viper.GetViper().BindPFlag("http.write-timeout", serverCmd.Flags().Lookup("write-timeout")))
	errPanic(viper.GetViper().BindPFlag("tplink.device-timeout", serverCmd.Flags().Lookup("device-timeout")))
	errPanic(viper.GetViper().BindPFlag("logging.log-requests", serverCmd.Flags().Lookup("log-requests")))

	rootCmd.AddCommand(serverCmd)
}

// newRouter builds the complete handler chain around the device routes
func newRouter(cli plugapi.Client, logRequests bool) http.Handler {
	dh := handlers.NewDeviceHandler(cli)

	r := mux.NewRouter()
	r.Use(middlewares.NewLoggingMw(logRequests))
	r.Use(middlewares.NewRecoveryMw())
	r.Use(middlewares.NewCorrelationMw("X-Correlation-ID"))
	dh.Register(r)
	r.HandleFunc("/healthz", handlers.HandleHealth).Methods(http.MethodGet)

	return middlewares.NewCors(middlewares.PermissiveOptions(), r)
}

func doServer() error {
	wait := viper.GetDuration("http.graceful-timeout")
	addr := net.JoinHostPort(viper.GetString("http.listen-addr"), strconv.FormatUint(uint64(viper.GetUint("http.port")), 10))
	deviceTimeout := viper.GetDuration("tplink.device-timeout")

	var logRequests bool
	if viper.GetBool("logging.log-requests") {
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			logRequests = true
		} else {
			logging.Logger(nil).Warn("log-requests ignored when not in debug mode")
		}
	}

	// One client for the life of the process, never modified after this
	creds := credentials.FromConfig(viper.GetViper())
	logging.Logger(nil).Debugf("plug account: %s", creds)
	plugClient := plugapi.NewLiveClient(creds).WithTimeout(deviceTimeout)

	s := &http.Server{
		Addr:         addr,
		ReadTimeout:  viper.GetDuration("http.read-timeout"),
		WriteTimeout: viper.GetDuration("http.write-timeout"),
		IdleTimeout:  time.Second * 60,
		Handler:      newRouter(plugClient, logRequests),
	}

	logging.Logger(nil).Infof("Serving on %s", addr)
	errc := make(chan error, 1)
	go func() {
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or the listener dies
	select {
	case <-c:
	case err := <-errc:
		logging.Logger(nil).WithError(err).Error("running server")
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), wait)
	defer cancel()
	logging.Logger(nil).Info("shutting down")
	if err := s.Shutdown(ctx); err != nil {
		logging.Logger(nil).WithError(err).Errorf("shutting down")
	}
	logging.Logger(nil).Info("exiting")
	return nil
}
