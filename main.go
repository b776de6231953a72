// Program mutop is a live terminal monitor for the muwerk cooperative
// scheduler. It asks a device on the MQTT bus to publish periodic task
// statistics and redraws them in place as a text dashboard until
// interrupted, at which point it cancels the sampling stream and leaves the
// last frame on screen.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"mutop/config"
	"mutop/render"
	"mutop/session"
)

const (
	defaultDomain    = "omu"
	defaultSampleSec = 2
	defaultPort      = 1883
	defaultKeepAlive = 60
	connectTimeout   = 10 * time.Second
)

type cliOptions struct {
	domain     string
	sampleSecs int
	port       int
	keepalive  int
	qos        int
	configPath string
	verbose    bool
}

func registerFlags(fs *flag.FlagSet, cli *cliOptions) {
	fs.StringVar(&cli.domain, "domain", defaultDomain, "topic domain prefix for the statistics subscription (empty disables it)")
	fs.StringVar(&cli.domain, "d", defaultDomain, "shorthand for -domain")
	fs.IntVar(&cli.sampleSecs, "sampletime", defaultSampleSec, "sample interval in seconds")
	fs.IntVar(&cli.sampleSecs, "s", defaultSampleSec, "shorthand for -sampletime")
	fs.IntVar(&cli.port, "port", defaultPort, "MQTT broker port")
	fs.IntVar(&cli.port, "p", defaultPort, "shorthand for -port")
	fs.IntVar(&cli.keepalive, "keepalive", defaultKeepAlive, "MQTT keepalive in seconds")
	fs.IntVar(&cli.qos, "qos", 0, "MQTT QoS for the subscription and control requests (0-2)")
	fs.StringVar(&cli.configPath, "config", "", "optional YAML config file")
	fs.BoolVar(&cli.verbose, "verbose", false, "log MQTT client internals")
	fs.BoolVar(&cli.verbose, "v", false, "shorthand for -verbose")
}

// resolveOptions merges defaults, config file values, and flags into session
// options. A flag given explicitly on the command line (either spelling)
// beats the config file; the config file beats the built-in default.
func resolveOptions(cfg *config.Config, cli cliOptions, set map[string]bool, broker, device string) (session.Options, error) {
	given := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}
	if cfg != nil {
		if !given("domain", "d") && cfg.Monitor.Domain != "" {
			cli.domain = cfg.Monitor.Domain
		}
		if !given("sampletime", "s") && cfg.Monitor.SampleSeconds > 0 {
			cli.sampleSecs = cfg.Monitor.SampleSeconds
		}
		if !given("port", "p") && cfg.Broker.Port > 0 {
			cli.port = cfg.Broker.Port
		}
		if !given("keepalive") && cfg.Broker.KeepAliveSeconds > 0 {
			cli.keepalive = cfg.Broker.KeepAliveSeconds
		}
		if !given("qos") && cfg.Broker.QoS > 0 {
			cli.qos = cfg.Broker.QoS
		}
	}

	if cli.sampleSecs < 1 {
		return session.Options{}, fmt.Errorf("sample interval must be at least 1 second")
	}
	if cli.port < 1 || cli.port > 65535 {
		return session.Options{}, fmt.Errorf("broker port %d out of range", cli.port)
	}
	if cli.qos < 0 || cli.qos > 2 {
		return session.Options{}, fmt.Errorf("qos %d out of range (want 0-2)", cli.qos)
	}

	return session.Options{
		Broker:         broker,
		Port:           cli.port,
		DeviceHost:     device,
		Domain:         cli.domain,
		SampleInterval: time.Duration(cli.sampleSecs) * time.Second,
		KeepAlive:      time.Duration(cli.keepalive) * time.Second,
		ConnectTimeout: connectTimeout,
		QoS:            byte(cli.qos),
	}, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: mutop [flags] <mqtt-hostname> <device-hostname>")
	flag.PrintDefaults()
}

func main() {
	var cli cliOptions
	registerFlags(flag.CommandLine, &cli)
	flag.Usage = usage
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.LUTC)

	if flag.NArg() != 2 {
		usage()
		os.Exit(1)
	}
	broker, device := flag.Arg(0), flag.Arg(1)

	var cfg *config.Config
	if cli.configPath != "" {
		var err error
		cfg, err = config.Load(cli.configPath)
		if err != nil {
			log.Fatalf("mutop: %v", err)
		}
	}
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	opts, err := resolveOptions(cfg, cli, set, broker, device)
	if err != nil {
		log.Fatalf("mutop: %v", err)
	}

	if cli.verbose {
		session.EnableTransportLogging()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := session.New(opts, render.NewTerminal(os.Stdout))
	if err := ctrl.Connect(); err != nil {
		log.Fatalf("mutop: %v", err)
	}
	if err := ctrl.Start(); err != nil {
		log.Fatalf("mutop: %v", err)
	}

	if err := ctrl.Run(ctx); err != nil {
		// No stop request on a fatal mid-stream error: the device stops
		// publishing on its own once the sampling stream goes idle.
		log.Fatalf("mutop: %v", err)
	}

	if err := ctrl.Stop(); err != nil {
		log.Printf("mutop: %v", err)
	}
	log.Printf("Received %s statistics frames.", humanize.Comma(int64(ctrl.Frames())))
}
