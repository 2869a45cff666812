package host

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ardnew/lcd2usb/pkg"
)

// Clock defaults.
const (
	DefaultClockSpec   = "@every 1s"
	DefaultClockLayout = "Mon Jan _2\n15:04:05"
)

var clockParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Clock renders the current time on an LCD on a cron schedule. The layout
// is a time.Format layout; a newline separates the two display rows.
type Clock struct {
	lcd    *LCD
	cron   *cron.Cron
	layout string
	now    func() time.Time
}

// NewClock schedules lcd updates with spec, a cron expression with
// optional seconds field or a descriptor such as "@every 1s".
func NewClock(lcd *LCD, spec, layout string) (*Clock, error) {
	if spec == "" {
		spec = DefaultClockSpec
	}
	if layout == "" {
		layout = DefaultClockLayout
	}
	c := &Clock{
		lcd:    lcd,
		layout: layout,
		now:    time.Now,
		cron: cron.New(
			cron.WithParser(clockParser),
			cron.WithLogger(cronLogger{}),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{})),
		),
	}
	if _, err := c.cron.AddFunc(spec, c.tick); err != nil {
		return nil, fmt.Errorf("clock schedule %q: %w", spec, err)
	}
	return c, nil
}

// Run draws once, then updates on schedule until ctx is done. It waits for
// a running update to finish before returning.
func (c *Clock) Run(ctx context.Context) error {
	if err := c.Render(ctx); err != nil {
		return err
	}
	c.cron.Start()
	<-ctx.Done()
	<-c.cron.Stop().Done()
	return nil
}

// Render draws the current time.
func (c *Clock) Render(ctx context.Context) error {
	lines := strings.SplitN(c.now().Format(c.layout), "\n", DisplayHeight)
	for row, s := range lines {
		if err := c.lcd.WriteLine(ctx, row, s); err != nil {
			return err
		}
	}
	return nil
}

func (c *Clock) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Render(ctx); err != nil {
		pkg.LogWarn(pkg.ComponentHost, "clock update failed", "error", err)
	}
}

// cronLogger routes cron's logging through the package logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	pkg.LogDebug(pkg.ComponentHost, "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	pkg.LogError(pkg.ComponentHost, "cron: "+msg, append(keysAndValues, "error", err)...)
}
