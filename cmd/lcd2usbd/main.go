// Command lcd2usbd runs the LCD2USB device firmware on a Linux board.
//
// The display is driven either through GPIO lines (periph.io) or through
// simulated HD44780 controllers. The USB side is the named-pipe bus shared
// with the lcd2usb tool.
//
// Usage:
//
//	lcd2usbd [-v] [-json] [-config path] [-simulate] [-dump] [-cpuprofile path]
//
// Options:
//
//	-v          Enable verbose logging
//	-json       Output logs as JSON
//	-config     Configuration file (created with defaults if missing)
//	-simulate   Use simulated controllers instead of GPIO
//	-dump       Print the simulated display on exit
//	-cpuprofile Write a CPU profile to path
//
// Example:
//
//	# Terminal 1
//	lcd2usbd -simulate -dump
//
//	# Terminal 2
//	lcd2usb demo
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ardnew/lcd2usb/device"
	"github.com/ardnew/lcd2usb/device/analog"
	"github.com/ardnew/lcd2usb/device/gpiobus"
	"github.com/ardnew/lcd2usb/device/hal/fifo"
	"github.com/ardnew/lcd2usb/device/hd44780"
	"github.com/ardnew/lcd2usb/device/hd44780/sim"
	"github.com/ardnew/lcd2usb/internal/config"
	"github.com/ardnew/lcd2usb/pkg"
	"github.com/ardnew/lcd2usb/pkg/prof"
)

const component = pkg.ComponentDevice

var (
	verbose    = flag.Bool("v", false, "Enable verbose logging")
	jsonOut    = flag.Bool("json", false, "Output logs as JSON")
	configPath = flag.String("config", config.DefaultPath(), "Configuration file")
	simulate   = flag.Bool("simulate", false, "Use simulated controllers instead of GPIO")
	dump       = flag.Bool("dump", false, "Print the simulated display on exit")
	cpuProfile = flag.String("cpuprofile", "", "Write a CPU profile to path")
)

// exitCode is returned once deferred cleanup has run.
var exitCode int

func main() {
	defer func() { os.Exit(exitCode) }()
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		pkg.LogError(component, "failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	pkg.SetLogLevel(pkg.ParseLogLevel(cfg.Log.Level))
	pkg.SetLogFormat(pkg.ParseLogFormat(cfg.Log.Format))
	if *verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}
	if *jsonOut {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}
	if *simulate {
		cfg.Device.Simulate = true
	}
	if *dump {
		cfg.Device.Dump = true
	}

	if *cpuProfile != "" {
		stop, err := prof.StartCPU(*cpuProfile)
		if err != nil {
			pkg.LogError(component, "failed to start profile", "error", err)
			os.Exit(1)
		}
		defer stop()
	}

	if err := run(cfg.Device); err != nil {
		pkg.LogError(component, "device failed", "error", err)
		exitCode = 1
	}
}

func run(cfg config.DeviceConfig) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		pkg.LogInfo(component, "shutting down")
		cancel()
	}()

	mem, err := analog.OpenFile(cfg.EEPROM)
	if err != nil {
		return fmt.Errorf("eeprom: %w", err)
	}

	opts := hd44780.Options{MaxPolls: cfg.MaxPolls}
	var (
		bus    hd44780.Bus
		out    analog.Output
		keys   device.Keys
		simBus *sim.Bus
	)
	if cfg.Simulate {
		simBus = newSimBus(cfg.Controllers)
		bus, out = simBus, &analog.Recorder{}
		opts.Delay = simBus.Sleep
		pkg.LogInfo(component, "using simulated controllers", "count", cfg.Controllers)
	} else {
		freq, err := cfg.Frequency()
		if err != nil {
			return err
		}
		b, err := gpiobus.Open(pinNames(cfg.Pins), freq)
		if err != nil {
			return err
		}
		bus, out, keys = b.Bus, b.PWM, b.Buttons
	}

	dispatcher := device.NewDispatcher(hd44780.New(bus, opts), analog.New(mem, out), keys)
	if err := dispatcher.Boot(); err != nil {
		return fmt.Errorf("boot: %w", err)
	}

	stack := device.NewStack(device.NewDescriptors(), dispatcher, fifo.New(cfg.BusDir))
	pkg.LogInfo(component, "starting LCD2USB device",
		"busDir", cfg.BusDir, "controllers", uint8(dispatcher.Controllers()))
	if err := stack.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	<-ctx.Done()
	if err := stack.Stop(); err != nil {
		pkg.LogWarn(component, "stop failed", "error", err)
	}

	if cfg.Dump && simBus != nil {
		dumpDisplay(simBus)
	}
	return nil
}

// newSimBus attaches n simulated controllers.
func newSimBus(n int) *sim.Bus {
	var c0, c1 *sim.Controller
	if n > 0 {
		c0 = sim.NewController()
	}
	if n > 1 {
		c1 = sim.NewController()
	}
	return sim.NewBus(c0, c1)
}

func pinNames(p config.Pins) gpiobus.PinNames {
	return gpiobus.PinNames{
		RS: p.RS, RW: p.RW, E0: p.E0, E1: p.E1,
		D4: p.D4, D5: p.D5, D6: p.D6, D7: p.D7,
		S1: p.S1, S2: p.S2,
		Contrast: p.Contrast, Brightness: p.Brightness,
	}
}

func dumpDisplay(b *sim.Bus) {
	for i := range hd44780.MaxControllers {
		c := b.Controller(i)
		if c == nil {
			continue
		}
		fmt.Printf("controller %d\n", i)
		fmt.Printf("+%s+\n", strings.Repeat("-", displayWidth))
		for row := range displayRows {
			fmt.Printf("|%s|\n", c.Row(row, displayWidth))
		}
		fmt.Printf("+%s+\n", strings.Repeat("-", displayWidth))
	}
}

const (
	displayWidth = 16
	displayRows  = 2
)
