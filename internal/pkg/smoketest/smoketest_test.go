package smoketest

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/plugapi"
)

type fakePlug struct {
	address string
	calls   *[]string
	mu      *sync.Mutex
	offErr  error
}

func (p *fakePlug) record(call string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	*p.calls = append(*p.calls, p.address+":"+call)
}

func (p *fakePlug) Address() string { return p.address }

func (p *fakePlug) On(ctx context.Context) error {
	p.record("on")
	return nil
}

func (p *fakePlug) Off(ctx context.Context) error {
	p.record("off")
	return p.offErr
}

func (p *fakePlug) DeviceInfo(ctx context.Context) (*plugapi.DeviceInfo, error) {
	p.record("info")
	return &plugapi.DeviceInfo{DeviceOn: true, Model: "P110", Type: "SMART.TAPOPLUG", FirmwareVersion: "1.3.1", Nickname: "Bench"}, nil
}

func (p *fakePlug) EnergyUsage(ctx context.Context) (*plugapi.EnergyUsage, error) {
	p.record("energy")
	return &plugapi.EnergyUsage{TodayRuntime: 17, CurrentPower: 4200}, nil
}

type fakeClient struct {
	mu       sync.Mutex
	calls    []string
	failures map[string]error
	offErrs  map[string]error
}

func (c *fakeClient) WithTimeout(d time.Duration) plugapi.Client { return c }

func (c *fakeClient) Plug(ctx context.Context, address string) (plugapi.Plug, error) {
	if err := c.failures[address]; err != nil {
		return nil, err
	}
	return &fakePlug{address: address, calls: &c.calls, mu: &c.mu, offErr: c.offErrs[address]}, nil
}

func newTestRunner(cli plugapi.Client, slept *[]time.Duration) *Runner {
	r := NewRunner(cli, "lab@example.com")
	r.sleep = func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return nil
	}
	return r
}

func TestRunDefaultAddress(t *testing.T) {
	cli := &fakeClient{}
	var slept []time.Duration
	var out bytes.Buffer

	require.NoError(t, newTestRunner(cli, &slept).Run(context.Background(), &out, nil))

	assert.Equal(t, []string{
		DefaultAddress + ":info",
		DefaultAddress + ":off",
		DefaultAddress + ":on",
		DefaultAddress + ":energy",
	}, cli.calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)

	report := out.String()
	assert.Contains(t, report, "Testing connection to 192.168.1.102")
	assert.Contains(t, report, "Username: lab@example.com")
	assert.Contains(t, report, "✓ Model: P110")
	assert.Contains(t, report, "✓ Firmware: 1.3.1")
	assert.Contains(t, report, "✓ Today's runtime: 17 minutes")
	assert.Contains(t, report, "✓ Current power: 4.200 watts")
	assert.True(t, strings.HasSuffix(report, "All tests passed!\n"))
}

func TestRunAbortsOnFailure(t *testing.T) {
	cli := &fakeClient{offErrs: map[string]error{"10.0.0.2": errors.New("device busy")}}
	var slept []time.Duration
	var out bytes.Buffer

	err := newTestRunner(cli, &slept).WithToggleDelay(time.Millisecond).Run(context.Background(), &out, []string{"10.0.0.2"})
	require.Error(t, err)
	assert.Equal(t, "1 of 1 devices failed: 10.0.0.2", err.Error())

	assert.Equal(t, []string{"10.0.0.2:info", "10.0.0.2:off"}, cli.calls)
	assert.Empty(t, slept)

	report := out.String()
	assert.Contains(t, report, "✗ Error: *errors.fundamental")
	assert.Contains(t, report, "✗ Details: device busy")
	assert.Contains(t, report, "smoketest_test.go", "stack trace printed")
	assert.NotContains(t, report, "All tests passed!")
}

func TestRunSeveralDevicesConcurrently(t *testing.T) {
	cli := &fakeClient{failures: map[string]error{"10.0.0.3": errors.New("no route to host")}}
	var mu sync.Mutex
	var slept []time.Duration
	r := NewRunner(cli, "lab@example.com").WithConcurrency(3)
	r.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		slept = append(slept, d)
		return nil
	}

	var out bytes.Buffer
	err := r.Run(context.Background(), &out, []string{"10.0.0.1", "10.0.0.3", "10.0.0.4"})
	require.Error(t, err)
	assert.Equal(t, "1 of 3 devices failed: 10.0.0.3", err.Error())
	assert.Len(t, slept, 2)

	// reports come out in the order the addresses were given
	report := out.String()
	first := strings.Index(report, "Testing connection to 10.0.0.1")
	second := strings.Index(report, "Testing connection to 10.0.0.3")
	third := strings.Index(report, "Testing connection to 10.0.0.4")
	assert.True(t, first >= 0 && first < second && second < third, report)
	assert.Equal(t, 2, strings.Count(report, "All tests passed!"))
}

func TestWaitHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	err := NewRunner(&fakeClient{}, "u").Run(ctx, &out, []string{"10.0.0.1"})
	require.Error(t, err)
	assert.Contains(t, out.String(), "waiting to switch back on: context canceled")
}
