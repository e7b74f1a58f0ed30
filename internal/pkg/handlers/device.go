package handlers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/ideaslabiot/IDEAS-project/internal/pkg/logging"
	"github.com/ideaslabiot/IDEAS-project/internal/pkg/plugapi"
)

// AddressVar is the route variable holding the plug's address
const AddressVar = "ip"

/*
 * DeviceHandler proxies power and status requests to a plug.  Each request
 * gets its own device handle; the client is the only shared state and is
 * never modified.  Concurrent requests for one plug are not serialized.
 */

type DeviceHandler struct {
	plugClient plugapi.Client
}

func NewDeviceHandler(cli plugapi.Client) DeviceHandler {
	return DeviceHandler{
		plugClient: cli,
	}
}

// Register adds the device routes to r
func (h *DeviceHandler) Register(r *mux.Router) {
	prefix := "/device/{" + AddressVar + "}"
	r.HandleFunc(prefix+"/on", h.HandleOn).Methods(http.MethodPost)
	r.HandleFunc(prefix+"/off", h.HandleOff).Methods(http.MethodPost)
	r.HandleFunc(prefix+"/status", h.HandleStatus).Methods(http.MethodGet)
}

func (h *DeviceHandler) HandleOn(w http.ResponseWriter, r *http.Request) {
	h.handlePower(w, r, true)
}

func (h *DeviceHandler) HandleOff(w http.ResponseWriter, r *http.Request) {
	h.handlePower(w, r, false)
}

func (h *DeviceHandler) handlePower(w http.ResponseWriter, r *http.Request, on bool) {
	address := mux.Vars(r)[AddressVar]
	ctxLogger := logging.Device(r.Context(), address)

	state := "off"
	if on {
		state = "on"
	}

	err := h.withPlug(r.Context(), address, func(p plugapi.Plug) error {
		if on {
			return p.On(r.Context())
		}
		return p.Off(r.Context())
	})
	if err != nil {
		ctxLogger.WithError(err).Errorf("Failed to turn %s", state)
		SendError(w, r, err)
		return
	}

	ctxLogger.Infof("Device turned %s", state)
	sendSuccess(w, r, Response{Message: fmt.Sprintf("Device %s turned %s", address, state)})
}

func (h *DeviceHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)[AddressVar]
	ctxLogger := logging.Device(r.Context(), address)

	var info *plugapi.DeviceInfo
	err := h.withPlug(r.Context(), address, func(p plugapi.Plug) error {
		var err error
		info, err = p.DeviceInfo(r.Context())
		if err == nil && info == nil {
			err = errors.Errorf("no device info from %s", address)
		}
		return err
	})
	if err != nil {
		ctxLogger.WithError(err).Error("Failed to get status")
		SendError(w, r, err)
		return
	}

	// Only the power state leaves the service
	sendSuccess(w, r, Response{Data: map[string]interface{}{"device_on": info.DeviceOn}})
}

func (h *DeviceHandler) withPlug(ctx context.Context, address string, fn func(p plugapi.Plug) error) error {
	p, err := h.plugClient.Plug(ctx, address)
	if err != nil {
		logging.Device(ctx, address).WithError(err).Error("Failed to connect to device")
		return err
	}

	return fn(p)
}

// HandleHealth answers liveness probes without touching any device
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	sendSuccess(w, r, Response{Message: "ok"})
}
