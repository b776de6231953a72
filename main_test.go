package main

import (
	"flag"
	"testing"
	"time"

	"mutop/config"
)

func parseArgs(t *testing.T, args ...string) (cliOptions, map[string]bool) {
	t.Helper()
	var cli cliOptions
	fs := flag.NewFlagSet("mutop", flag.ContinueOnError)
	registerFlags(fs, &cli)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("flag parse failed: %v", err)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return cli, set
}

func TestResolveOptionsDefaults(t *testing.T) {
	cli, set := parseArgs(t)
	opts, err := resolveOptions(nil, cli, set, "broker", "dev")
	if err != nil {
		t.Fatalf("resolveOptions failed: %v", err)
	}
	if opts.Domain != "omu" || opts.Port != 1883 || opts.SampleInterval != 2*time.Second {
		t.Fatalf("defaults mismatch: %+v", opts)
	}
	if opts.KeepAlive != 60*time.Second || opts.QoS != 0 {
		t.Fatalf("defaults mismatch: %+v", opts)
	}
	if opts.Broker != "broker" || opts.DeviceHost != "dev" {
		t.Fatalf("positional args lost: %+v", opts)
	}
}

func TestResolveOptionsConfigOverridesDefaults(t *testing.T) {
	cli, set := parseArgs(t)
	cfg := &config.Config{}
	cfg.Broker.Port = 8883
	cfg.Monitor.Domain = "home"
	cfg.Monitor.SampleSeconds = 5
	opts, err := resolveOptions(cfg, cli, set, "broker", "dev")
	if err != nil {
		t.Fatalf("resolveOptions failed: %v", err)
	}
	if opts.Port != 8883 || opts.Domain != "home" || opts.SampleInterval != 5*time.Second {
		t.Fatalf("config values not applied: %+v", opts)
	}
}

func TestResolveOptionsFlagsBeatConfig(t *testing.T) {
	cli, set := parseArgs(t, "-d", "", "-s", "10", "-p", "1884")
	cfg := &config.Config{}
	cfg.Broker.Port = 8883
	cfg.Monitor.Domain = "home"
	cfg.Monitor.SampleSeconds = 5
	opts, err := resolveOptions(cfg, cli, set, "broker", "dev")
	if err != nil {
		t.Fatalf("resolveOptions failed: %v", err)
	}
	if opts.Domain != "" {
		t.Fatalf("explicit empty domain must disable the prefix, got %q", opts.Domain)
	}
	if opts.SampleInterval != 10*time.Second || opts.Port != 1884 {
		t.Fatalf("explicit flags lost: %+v", opts)
	}
}

func TestResolveOptionsRejectsBadValues(t *testing.T) {
	cases := [][]string{
		{"-s", "0"},
		{"-p", "0"},
		{"-qos", "3"},
	}
	for _, args := range cases {
		cli, set := parseArgs(t, args...)
		if _, err := resolveOptions(nil, cli, set, "broker", "dev"); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}
