package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"golang.org/x/time/rate"

	"github.com/nasa-jpl/golab-smu/comm"
	"github.com/nasa-jpl/golab-smu/generichttp"
	"github.com/nasa-jpl/golab-smu/generichttp/ascii"
	"github.com/nasa-jpl/golab-smu/generichttp/smu"
	"github.com/nasa-jpl/golab-smu/keysight"
	"github.com/nasa-jpl/golab-smu/scpi"
	"github.com/nasa-jpl/golab-smu/server/middleware/locker"
	"github.com/nasa-jpl/golab-smu/usbtmc"
	"github.com/nasa-jpl/golab-smu/util"
)

// idleTimeout is how long an unused connection to an instrument is kept open
const idleTimeout = 30 * time.Second

// ObjSetup holds the parameters for one instrument served by the server
type ObjSetup struct {
	// Addr holds the network or filesystem address of the remote device,
	// e.g. 192.168.100.123:5025 for a LAN instrument, or /dev/ttyS4 for an
	// RS232 device on a serial cable.  Unused for USB.
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Endpoint is the full path the routes from this device will be served on
	// ex. Endpoint="/omc/smu" will produce routes of /omc/smu/output, etc.
	Endpoint string `yaml:"Endpoint" koanf:"Endpoint"`

	// Transport is one of tcp, serial, usb.  Blank means tcp.
	Transport string `yaml:"Transport" koanf:"Transport"`

	// Baud is the baud rate of a serial connection
	Baud int `yaml:"Baud" koanf:"Baud"`

	// VID and PID identify a USB instrument.  Zero means a Keysight B2961A.
	VID int `yaml:"VID" koanf:"VID"`
	PID int `yaml:"PID" koanf:"PID"`

	// Type is the "type" of the object, e.g. b2961a
	Type string `yaml:"Type" koanf:"Type"`

	// Name overrides the display name of the instrument
	Name string `yaml:"Name" koanf:"Name"`

	// Handshaking checks the error queue after every command
	Handshaking bool `yaml:"Handshaking" koanf:"Handshaking"`

	// MinCommandInterval is the minimum time between commands, in seconds
	MinCommandInterval float64 `yaml:"MinCommandInterval" koanf:"MinCommandInterval"`

	// Limits are software limits on float settings, keyed by route,
	// e.g. source-voltage
	Limits map[string]util.Limiter `yaml:"Limits" koanf:"Limits"`
}

// Config is a struct that holds the initialization parameters for the server
type Config struct {
	// Addr is the address to listen at
	Addr string `yaml:"Addr" koanf:"Addr"`

	// Mock replaces every instrument with an in-memory one
	Mock bool `yaml:"Mock" koanf:"Mock"`

	// Nodes is the list of nodes to set up
	Nodes []ObjSetup `yaml:"Nodes" koanf:"Nodes"`
}

// NewAdapter opens the transport described by node.
// With mock set, a mock instrument is returned instead.
func NewAdapter(node ObjSetup, mock bool) (scpi.Adapter, error) {
	if mock {
		return keysight.NewMockB2961AAdapter(), nil
	}
	var maker comm.CreationFunc
	switch strings.ToLower(node.Transport) {
	case "", "tcp":
		maker = comm.Dialer(node.Addr, nil)
	case "serial":
		baud := node.Baud
		if baud == 0 {
			baud = 9600
		}
		maker = comm.Dialer(node.Addr, comm.SerialConf(node.Addr, baud))
	case "usb":
		vid, pid := uint16(node.VID), uint16(node.PID)
		if vid == 0 {
			vid = usbtmc.KeysightVID
		}
		if pid == 0 {
			pid = usbtmc.B2961APID
		}
		maker = usbtmc.Dialer(vid, pid)
	default:
		return nil, fmt.Errorf("transport %q not understood", node.Transport)
	}
	s := scpi.New(comm.NewPool(1, idleTimeout, maker))
	s.Handshaking = node.Handshaking
	if node.MinCommandInterval > 0 {
		s.Limiter = rate.NewLimiter(rate.Every(util.SecsToDuration(node.MinCommandInterval)), 1)
	}
	return s, nil
}

// NewDevice creates the instrument described by node on a
func NewDevice(node ObjSetup, a scpi.Adapter) (*keysight.B2961A, error) {
	var opts []scpi.Option
	if node.Name != "" {
		opts = append(opts, scpi.WithName(node.Name))
	}
	switch strings.ToLower(node.Type) {
	case "b2961a", "keysight-b2961a", "":
		return keysight.NewB2961A(a, opts...)
	default:
		return nil, fmt.Errorf("type %q not understood", node.Type)
	}
}

// closeAdapter releases the connections held by a, if any
func closeAdapter(a scpi.Adapter) error {
	if s, ok := a.(*scpi.SCPI); ok {
		return s.Pool.Close()
	}
	return nil
}

// BuildMux builds a chi router serving every node in c under its endpoint.
// The router serves a special route, /endpoints, which returns a map of
// endpoint to routes as JSON.
func BuildMux(c Config) (chi.Router, error) {
	root := chi.NewRouter()
	root.Use(middleware.Logger)
	supergraph := map[string][]string{}
	for _, node := range c.Nodes {
		a, err := NewAdapter(node, c.Mock)
		if err != nil {
			return nil, err
		}
		dev, err := NewDevice(node, a)
		if err != nil {
			return nil, err
		}
		httper := smu.NewHTTPSMU(dev)
		ascii.InjectRawComm(httper.RT(), dev)
		limiter := smu.LimitMiddleware{Limits: node.Limits}
		limiter.Inject(httper)

		lock := locker.New()
		locker.Inject(httper, lock)

		hndlS := generichttp.SubMuxSanitize(node.Endpoint)
		if _, exists := supergraph[hndlS]; exists {
			return nil, fmt.Errorf("endpoint %s used more than once", hndlS)
		}
		supergraph[hndlS] = httper.RT().Endpoints()

		r := chi.NewRouter()
		r.Use(lock.Check)
		r.Use(limiter.Check)
		httper.RT().Bind(r)
		root.Mount(hndlS, r)
	}
	root.Get("/endpoints", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err := json.NewEncoder(w).Encode(supergraph)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
	return root, nil
}
