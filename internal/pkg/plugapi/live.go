package plugapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/netip"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/insomniacslk/tapo"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/credentials"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/logging"
)

// vendorPlug is the part of the Tapo SDK's plug that we drive.  Replies
// are kept opaque and re-read through our own JSON views.
type vendorPlug interface {
	handshake(username, password string) error
	setDeviceOn(on bool) error
	deviceInfo() (interface{}, error)
	energyUsage() (interface{}, error)
}

type dialFunc func(addr netip.Addr) vendorPlug

type tapoPlug struct {
	p *tapo.Plug
}

func (t tapoPlug) handshake(username, password string) error {
	return t.p.Handshake(username, password)
}

func (t tapoPlug) setDeviceOn(on bool) error {
	return t.p.SetDeviceInfo(on)
}

func (t tapoPlug) deviceInfo() (interface{}, error) {
	return t.p.GetDeviceInfo()
}

func (t tapoPlug) energyUsage() (interface{}, error) {
	return t.p.GetEnergyUsage()
}

func tapoDialer(logger *log.Logger) dialFunc {
	return func(addr netip.Addr) vendorPlug {
		return tapoPlug{p: tapo.NewPlug(addr, logger)}
	}
}

// Live talks to real plugs on the local network through the Tapo SDK
type Live struct {
	creds   credentials.Credentials
	timeout time.Duration
	dial    dialFunc
}

func NewLiveClient(creds credentials.Credentials) *Live {
	sdkLog := log.New(logging.Logger(nil).WithField("component", "tapo").WriterLevel(logrus.DebugLevel), "", 0)

	return &Live{
		creds: creds,
		dial:  tapoDialer(sdkLog),
	}
}

// WithTimeout bounds every device call; zero means wait as long as the
// device takes
func (c *Live) WithTimeout(d time.Duration) Client {
	nc := *c
	nc.timeout = d
	return &nc
}

func (c *Live) MakeContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}

	if c.timeout > 0 {
		return context.WithTimeout(parent, c.timeout)
	}

	return context.WithCancel(parent)
}

// run executes a blocking SDK call.  The SDK has no context support so a
// call abandoned on ctx expiry finishes in the background.
func (c *Live) run(ctx context.Context, fn func() error) error {
	ctx, cancel := c.MakeContext(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Plug connects and authenticates to the plug at address.  Every call
// performs a fresh handshake.
func (c *Live) Plug(ctx context.Context, address string) (Plug, error) {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing device address %q", address)
	}

	vp := c.dial(addr)
	err = c.run(ctx, func() error {
		return vp.handshake(c.creds.Username(), c.creds.Password())
	})
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to device %s", address)
	}

	logging.Device(ctx, address).Debug("handshake complete")

	return &livePlug{address: address, vp: vp, client: c}, nil
}

type livePlug struct {
	address string
	vp      vendorPlug
	client  *Live
}

func (p *livePlug) Address() string {
	return p.address
}

func (p *livePlug) On(ctx context.Context) error {
	err := p.client.run(ctx, func() error { return p.vp.setDeviceOn(true) })
	return errors.Wrapf(err, "switching device %s on", p.address)
}

func (p *livePlug) Off(ctx context.Context) error {
	err := p.client.run(ctx, func() error { return p.vp.setDeviceOn(false) })
	return errors.Wrapf(err, "switching device %s off", p.address)
}

func (p *livePlug) DeviceInfo(ctx context.Context) (*DeviceInfo, error) {
	var info DeviceInfo

	err := p.client.run(ctx, func() error {
		reply, err := p.vp.deviceInfo()
		if err != nil {
			return err
		}
		return remarshal(reply, &info)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching device info from %s", p.address)
	}

	info.Nickname = decodeNickname(info.Nickname)
	return &info, nil
}

func (p *livePlug) EnergyUsage(ctx context.Context) (*EnergyUsage, error) {
	var usage EnergyUsage

	err := p.client.run(ctx, func() error {
		reply, err := p.vp.energyUsage()
		if err != nil {
			return err
		}
		return remarshal(reply, &usage)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "fetching energy usage from %s", p.address)
	}

	return &usage, nil
}

// remarshal copies an SDK reply into one of our views via the device's
// own JSON field names
func remarshal(src interface{}, dst interface{}) error {
	if src == nil {
		return errors.New("empty reply from device")
	}

	b, err := json.Marshal(src)
	if err != nil {
		return errors.Wrap(err, "encoding device reply")
	}

	// A nil reply pointer wrapped in an interface
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return errors.New("empty reply from device")
	}

	if err := json.Unmarshal(b, dst); err != nil {
		return errors.Wrap(err, "decoding device reply")
	}

	return nil
}

// Plugs report their nickname base64 encoded.  Anything that does not
// decode to printable text is taken as already decoded.
func decodeNickname(s string) string {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil || len(b) == 0 || !utf8.Valid(b) {
		return s
	}

	for _, r := range string(b) {
		if !unicode.IsPrint(r) {
			return s
		}
	}

	return string(b)
}
