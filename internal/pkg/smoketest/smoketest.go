package smoketest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/korovkin/limiter"
	"github.com/pkg/errors"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/logging"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/plugapi"
)

// DefaultAddress is the lab plug checked when no address is given
const DefaultAddress = "192.168.1.102"

const defaultToggleDelay = time.Second * 2

/*
 * Runner walks one or more plugs through a manual end to end check:
 * connect, read info, switch off, wait, switch on, read an energy sample.
 * The first failure ends the check for that plug.
 */

type Runner struct {
	plugClient  plugapi.Client
	username    string
	toggleDelay time.Duration
	concurrency int
	sleep       func(ctx context.Context, d time.Duration) error
}

func NewRunner(cli plugapi.Client, username string) *Runner {
	return &Runner{
		plugClient:  cli,
		username:    username,
		toggleDelay: defaultToggleDelay,
		concurrency: 1,
		sleep:       sleepContext,
	}
}

func (r *Runner) WithToggleDelay(d time.Duration) *Runner {
	nr := *r
	nr.toggleDelay = d
	return &nr
}

func (r *Runner) WithConcurrency(n int) *Runner {
	nr := *r
	if n < 1 {
		n = 1
	}
	nr.concurrency = n
	return &nr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run checks every address and writes one report block per plug to out,
// in the order given.  It fails if any plug failed.
func (r *Runner) Run(ctx context.Context, out io.Writer, addresses []string) error {
	if len(addresses) == 0 {
		addresses = []string{DefaultAddress}
	}

	// Each job only touches its own slot
	reports := make([]bytes.Buffer, len(addresses))
	results := make([]error, len(addresses))

	var outMu sync.Mutex
	limit := limiter.NewConcurrencyLimiter(r.concurrency)
	for i := range addresses {
		i := i
		limit.ExecuteWithTicket(func(ticket int) {
			logging.Device(ctx, addresses[i]).Debugf("smoke test worker %d: starting", ticket)
			results[i] = r.testDevice(ctx, &reports[i], addresses[i])
			if results[i] != nil {
				r.printFailure(&reports[i], results[i])
			}

			// Serial runs stream straight out
			if r.concurrency == 1 {
				outMu.Lock()
				out.Write(reports[i].Bytes())
				reports[i].Reset()
				outMu.Unlock()
			}
		})
	}
	limit.Wait()

	var failed []string
	for i := range addresses {
		out.Write(reports[i].Bytes())
		if results[i] != nil {
			failed = append(failed, addresses[i])
		}
	}

	if len(failed) > 0 {
		return errors.Errorf("%d of %d devices failed: %s", len(failed), len(addresses), strings.Join(failed, ", "))
	}

	return nil
}

func (r *Runner) testDevice(ctx context.Context, w io.Writer, address string) error {
	fmt.Fprintf(w, "Testing connection to %s\n", address)
	fmt.Fprintf(w, "Username: %s\n", r.username)
	fmt.Fprintln(w, strings.Repeat("-", 50))

	fmt.Fprintln(w, "Connecting to device...")
	p, err := r.plugClient.Plug(ctx, address)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ Connection successful!")

	fmt.Fprintln(w, "\nGetting device info...")
	info, err := p.DeviceInfo(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Device Type: %s\n", info.Type)
	fmt.Fprintf(w, "✓ Model: %s\n", info.Model)
	if info.Nickname != "" {
		fmt.Fprintf(w, "✓ Nickname: %s\n", info.Nickname)
	}
	fmt.Fprintf(w, "✓ Device ON: %t\n", info.DeviceOn)
	fmt.Fprintf(w, "✓ Firmware: %s\n", info.FirmwareVersion)

	fmt.Fprintln(w, "\nTurning device OFF...")
	if err := p.Off(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ Device turned OFF!")

	if err := r.sleep(ctx, r.toggleDelay); err != nil {
		return errors.Wrap(err, "waiting to switch back on")
	}

	fmt.Fprintln(w, "\nTurning device ON...")
	if err := p.On(ctx); err != nil {
		return err
	}
	fmt.Fprintln(w, "✓ Device turned ON!")

	fmt.Fprintln(w, "\nGetting energy usage...")
	usage, err := p.EnergyUsage(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Today's runtime: %d minutes\n", usage.TodayRuntime)
	fmt.Fprintf(w, "✓ Current power: %.3f watts\n", usage.CurrentPowerWatts())

	fmt.Fprintln(w, "\n"+strings.Repeat("=", 50))
	fmt.Fprintln(w, "All tests passed!")

	return nil
}

func (r *Runner) printFailure(w io.Writer, err error) {
	fmt.Fprintf(w, "✗ Error: %T\n", errors.Cause(err))
	fmt.Fprintf(w, "✗ Details: %s\n", err)
	fmt.Fprintf(w, "%+v\n", err)
}
