package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/theckman/yacspin"

	yml "gopkg.in/yaml.v2"
)

var (
	// Version is the version number.  Typically injected via ldflags with git build
	Version = "1"

	// ConfigFileName is what it sounds like
	ConfigFileName = "smusrv.yml"

	// EnvPrefix prefixes environment variables which override the config file,
	// e.g. SMUSRV_ADDR=:9000
	EnvPrefix = "SMUSRV_"

	k = koanf.New(".")
)

// defaultConfig is the configuration before the file and environment are read
func defaultConfig() Config {
	return Config{
		Addr: ":8000",
		Nodes: []ObjSetup{{
			Addr:      "192.168.100.10:5025",
			Endpoint:  "/smu",
			Transport: "tcp",
			Type:      "b2961a",
		}}}
}

// loadConfig layers the defaults, the file at path, and the environment into k.
// A missing file is not an error.
func loadConfig(k *koanf.Koanf, path string) error {
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return err
	}
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if !os.IsNotExist(err) && !strings.Contains(err.Error(), "no such") {
			return err
		}
	}
	return k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.TrimPrefix(s, EnvPrefix)
		for _, known := range k.Keys() {
			if strings.EqualFold(known, key) {
				return known
			}
		}
		return key
	}), nil)
}

func setupconfig() {
	if err := loadConfig(k, ConfigFileName); err != nil {
		log.Fatalf("error loading config: %v", err)
	}
}

func root() {
	str := `smusrv communicates with source-measure units and exposes an HTTP interface to them
This enables a server-client architecture, and the clients can leverage the
excellent HTTP libraries for any programming language.

Usage:
	smusrv <command>

Commands:
	run
	help
	mkconf
	conf
	version
	probe`
	fmt.Println(str)
}

func help() {
	str := `smusrv is amenable to configuration via its .yml file.  For a primer on YAML, see
https://yaml.org/start.html

Top level scalars may be overridden by environment variables prefixed with
SMUSRV_, e.g. SMUSRV_ADDR=:9000 or SMUSRV_MOCK=true.

No two endpoints can have the same URL.

URLs may look like any variation between "omc/smu" or "/omc/smu/*", the leading
and trailing slashes, as well as the *, are added by the server if missing.

Transports, case insensitive:
- "tcp" (default), Addr is host:port, port 5025 for SCPI raw sockets
- "serial", Addr is the port, e.g. /dev/ttyS0 or COM3, with Baud
- "usb", USBTMC; VID and PID select the instrument, default the B2961A

Hardware and matching "type" fields, case insensitive:
- Keysight
	> B2961A low noise power source "b2961a", "keysight-b2961a"

Each node may carry software Limits on float settings, e.g.
	Limits:
		source-voltage:
			Min: -5
			Max: 5
The range and compliance of apply-current and apply-voltage are held to the
source-*-range and *-compliance limits.  The raw route is not checked.

With Mock: true, every node is backed by an in-memory instrument.`
	fmt.Println(str)
}

func mkconf() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(ConfigFileName)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	err = yml.NewEncoder(f).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func printconf() {
	c := Config{}
	k.Unmarshal("", &c)
	err := yml.NewEncoder(os.Stdout).Encode(c)
	if err != nil {
		log.Fatal(err)
	}
}

func pversion() {
	fmt.Printf("smusrv version %v\n", Version)
}

// probe opens every node and prints its identity and error queue
func probe() {
	c := Config{}
	if err := k.Unmarshal("", &c); err != nil {
		log.Fatal(err)
	}
	spinner, err := yacspin.New(yacspin.Config{
		Frequency:         100 * time.Millisecond,
		CharSet:           yacspin.CharSets[11],
		Suffix:            " ",
		StopCharacter:     "✓",
		StopColors:        []string{"fgGreen"},
		StopFailCharacter: "✗",
		StopFailColors:    []string{"fgRed"},
	})
	if err != nil {
		log.Fatal(err)
	}
	failed := false
	for _, node := range c.Nodes {
		spinner.Message("probing " + node.Endpoint)
		if err = spinner.Start(); err != nil {
			log.Fatal(err)
		}
		id, err := probeNode(node, c.Mock)
		if err != nil {
			failed = true
			spinner.StopFailMessage(fmt.Sprintf("%s: %v", node.Endpoint, err))
			spinner.StopFail()
			continue
		}
		spinner.StopMessage(fmt.Sprintf("%s: %s", node.Endpoint, id))
		spinner.Stop()
	}
	if failed {
		os.Exit(1)
	}
}

func probeNode(node ObjSetup, mock bool) (string, error) {
	a, err := NewAdapter(node, mock)
	if err != nil {
		return "", err
	}
	defer closeAdapter(a)
	dev, err := NewDevice(node, a)
	if err != nil {
		return "", err
	}
	id, err := dev.ID()
	if err != nil {
		return "", err
	}
	errs, err := dev.CheckErrors()
	if err != nil {
		return "", err
	}
	if len(errs) > 0 {
		return fmt.Sprintf("%s (%d queued errors, first: %v)", id, len(errs), errs[0]), nil
	}
	return id, nil
}

func run() {
	c := Config{}
	err := k.Unmarshal("", &c)
	if err != nil {
		log.Fatal(err)
	}
	if len(c.Nodes) == 0 {
		log.Fatal("no nodes configured, nothing to serve")
	}
	mux, err := BuildMux(c)
	if err != nil {
		log.Fatal(err)
	}
	log.Println("now listening for requests at ", c.Addr)
	log.Fatal(http.ListenAndServe(c.Addr, mux))
}

func main() {
	var cmd string
	args := os.Args
	if len(args) == 1 {
		root()
		return
	}
	setupconfig()
	cmd = args[1]
	cmd = strings.ToLower(cmd)
	switch cmd {
	case "help":
		help()
		return
	case "mkconf":
		mkconf()
		return
	case "conf":
		printconf()
		return
	case "run":
		run()
		return
	case "version":
		pversion()
		return
	case "probe":
		probe()
		return
	default:
		log.Fatal("unknown command")
	}
}
