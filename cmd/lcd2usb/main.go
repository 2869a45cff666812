// Command lcd2usb talks to an LCD2USB display.
//
// Usage:
//
//	lcd2usb [options] <command> [args]
//
// Commands:
//
//	demo            Run the interactive demo (default)
//	info            Print firmware version, controllers and keys
//	echo [n]        Run n echo round trips (default 100)
//	contrast N      Set the contrast (0-255)
//	brightness N    Set the backlight brightness (0-255)
//	write TEXT      Write TEXT at the cursor
//	clear           Clear the display
//	clock           Show the time until interrupted
//	list            List USB devices (usbfs transport only)
//
// Options:
//
//	-v           Enable verbose logging
//	-json        Output logs as JSON
//	-config      Configuration file (created with defaults if missing)
//	-transport   "fifo" or "usbfs" (overrides the config file)
//	-bus         FIFO bus directory (overrides the config file)
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/ardnew/lcd2usb/host"
	"github.com/ardnew/lcd2usb/host/hal"
	"github.com/ardnew/lcd2usb/host/hal/fifo"
	"github.com/ardnew/lcd2usb/internal/config"
	"github.com/ardnew/lcd2usb/pkg"
)

const component = pkg.ComponentHost

var (
	verbose    = flag.Bool("v", false, "Enable verbose logging")
	jsonOut    = flag.Bool("json", false, "Output logs as JSON")
	configPath = flag.String("config", config.DefaultPath(), "Configuration file")
	transport  = flag.String("transport", "", `Transport: "fifo" or "usbfs"`)
	busDir     = flag.String("bus", "", "FIFO bus directory")
)

// errUsage reports a malformed command line.
var errUsage = errors.New("usage")

// Demo text and timing.
const (
	marqueeText   = "The quick brown fox jumps over the lazy dog"
	marqueeStep   = 100 * time.Millisecond
	fadeStep      = 10 * time.Millisecond
	echoTestCount = 100
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(),
			"usage: %s [options] demo|info|echo|contrast|brightness|write|clear|clock|list [args]\n",
			os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		pkg.LogError(component, "failed to load config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	applyFlags(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		pkg.LogInfo(component, "interrupted")
		cancel()
	}()

	args := flag.Args()
	if len(args) == 0 {
		args = []string{"demo"}
	}
	if err := run(ctx, cfg.Host, args); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		pkg.LogError(component, "command failed", "command", args[0], "error", err)
		os.Exit(1)
	}
}

func applyFlags(cfg *config.Config) {
	pkg.SetLogLevel(pkg.ParseLogLevel(cfg.Log.Level))
	pkg.SetLogFormat(pkg.ParseLogFormat(cfg.Log.Format))
	if *verbose {
		pkg.SetLogLevel(slog.LevelDebug)
	}
	if *jsonOut {
		pkg.SetLogFormat(pkg.LogFormatJSON)
	}
	if *transport != "" {
		cfg.Host.Transport = *transport
	}
	if *busDir != "" {
		cfg.Host.BusDir = *busDir
	}
}

func run(ctx context.Context, cfg config.HostConfig, args []string) error {
	verb, rest := args[0], args[1:]

	if verb == "list" {
		return listDevices(os.Stdout)
	}

	// Validate arguments before touching the bus.
	var value byte
	switch verb {
	case "contrast", "brightness":
		if len(rest) != 1 {
			return fmt.Errorf("%w: %s N", errUsage, verb)
		}
		v, err := strconv.ParseUint(rest[0], 0, 8)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", errUsage, verb, err)
		}
		value = byte(v)
	case "write":
		if len(rest) == 0 {
			return fmt.Errorf("%w: write TEXT", errUsage)
		}
	case "echo":
		if len(rest) > 1 {
			return fmt.Errorf("%w: echo [n]", errUsage)
		}
	case "demo", "info", "clear", "clock":
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, verb)
	}

	h, err := openHAL(cfg)
	if err != nil {
		return err
	}
	lcd, err := host.Open(ctx, h,
		host.WithTimeout(cfg.Timeout),
		host.WithConnectTimeout(cfg.Connect))
	if err != nil {
		return err
	}
	defer lcd.Close()

	pkg.LogInfo(component, "device connected", "device", lcd.Info().String())

	switch verb {
	case "demo":
		return demo(ctx, lcd)
	case "info":
		return printInfo(ctx, lcd)
	case "echo":
		n := echoTestCount
		if len(rest) == 1 {
			if n, err = strconv.Atoi(rest[0]); err != nil || n < 0 {
				return fmt.Errorf("%w: echo count %q", errUsage, rest[0])
			}
		}
		return echoTest(ctx, lcd, n)
	case "contrast":
		return lcd.SetContrast(ctx, value)
	case "brightness":
		return lcd.SetBrightness(ctx, value)
	case "write":
		return lcd.Write(ctx, strings.Join(rest, " "))
	case "clear":
		return lcd.Clear(ctx)
	case "clock":
		clock, err := host.NewClock(lcd, cfg.Clock.Schedule, cfg.Clock.Layout)
		if err != nil {
			return err
		}
		return clock.Run(ctx)
	}
	return nil
}

// openHAL returns the HAL for the configured transport.
func openHAL(cfg config.HostConfig) (hal.HostHAL, error) {
	switch cfg.Transport {
	case config.TransportUSBFS:
		return openUSBFS(cfg)
	default:
		return fifo.New(cfg.BusDir), nil
	}
}

func echoTest(ctx context.Context, lcd *host.LCD, n int) error {
	fmt.Printf("Echo test with %d transfers...\n", n)
	errs, err := lcd.EchoTest(ctx, n)
	if err != nil {
		return err
	}
	if errs > 0 {
		fmt.Printf("%d out of %d echo transfers failed!\n", errs, n)
	} else {
		fmt.Println("Echo test successful!")
	}
	return nil
}

// printInfo prints the device state. A failed query is reported and the
// remaining ones still run.
func printInfo(ctx context.Context, lcd *host.LCD) error {
	desc := lcd.Descriptor()
	major, minor := desc.Version()
	fmt.Printf("Device: %04x:%04x rev %d.%02d at %s\n",
		desc.VendorID, desc.ProductID, major, minor, lcd.Info())
	if p := lcd.Product(); p != "" {
		fmt.Printf("Product: %s\n", p)
	}

	if v, err := lcd.Version(ctx); err != nil {
		fmt.Printf("Firmware version: %v\n", err)
	} else {
		fmt.Printf("Firmware version %s\n", v)
	}

	if c, err := lcd.Controllers(ctx); err != nil {
		fmt.Printf("Installed controllers: %v\n", err)
	} else {
		fmt.Printf("Installed controllers: %s\n", controllerNames(byte(c)))
	}

	if k, err := lcd.Keys(ctx); err != nil {
		fmt.Printf("Keys: %v\n", err)
	} else {
		fmt.Printf("Keys: 0:%s 1:%s\n", keyState(k, 0), keyState(k, 1))
	}
	return ctx.Err()
}

func demo(ctx context.Context, lcd *host.LCD) error {
	if err := echoTest(ctx, lcd, echoTestCount); err != nil {
		return err
	}
	if err := printInfo(ctx, lcd); err != nil {
		return err
	}

	if err := lcd.SetContrast(ctx, 200); err != nil {
		fmt.Printf("Set contrast: %v\n", err)
	}
	if err := lcd.SetBrightness(ctx, 255); err != nil {
		fmt.Printf("Set brightness: %v\n", err)
	}

	if err := lcd.Clear(ctx); err != nil {
		return err
	}
	if err := marquee(ctx, lcd, marqueeText); err != nil {
		return err
	}

	if err := fade(ctx, lcd, 255, 0); err != nil {
		return err
	}
	if err := lcd.Clear(ctx); err != nil {
		return err
	}
	if err := lcd.Write(ctx, "Bye bye!!!"); err != nil {
		return err
	}
	return fade(ctx, lcd, 0, 255)
}

// marquee scrolls text across the first row, entering and leaving from
// the right and left edges.
func marquee(ctx context.Context, lcd *host.LCD, text string) error {
	pad := strings.Repeat(" ", host.DisplayWidth)
	line := pad + text + pad
	for i := 0; i+host.DisplayWidth <= len(line); i++ {
		if err := lcd.WriteLine(ctx, 0, line[i:i+host.DisplayWidth]); err != nil {
			return err
		}
		if err := sleep(ctx, marqueeStep); err != nil {
			return err
		}
	}
	return nil
}

// fade steps the brightness from one value to another.
func fade(ctx context.Context, lcd *host.LCD, from, to int) error {
	step := 1
	if to < from {
		step = -1
	}
	for v := from; ; v += step {
		if err := lcd.SetBrightness(ctx, byte(v)); err != nil {
			fmt.Printf("Set brightness: %v\n", err)
			return nil
		}
		if v == to {
			return nil
		}
		if err := sleep(ctx, fadeStep); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func controllerNames(c byte) string {
	if c == 0 {
		return "none"
	}
	var names []string
	for i := range 2 {
		if c&(1<<i) != 0 {
			names = append(names, strconv.Itoa(i))
		}
	}
	return strings.Join(names, ", ")
}

func keyState(keys byte, i int) string {
	if keys&(1<<i) != 0 {
		return "on"
	}
	return "off"
}
