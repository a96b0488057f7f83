// Command power-switch drives one Raspberry Pi GPIO line to power an external
// device on, off, or through an off-pause-on reboot pulse.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/cli"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sweeney/power-switch/internal/gpio"
	"github.com/sweeney/power-switch/internal/logging"
	"github.com/sweeney/power-switch/internal/mqtt"
	"github.com/sweeney/power-switch/internal/power"
)

// envPrefix namespaces environment overrides, e.g. POWER_SWITCH_PIN.
const envPrefix = "power_switch"

func main() {
	log.SetHandler(cli.New(os.Stderr))
	if err := newRootCmd(gpio.Open, dialMQTT).Execute(); err != nil {
		log.WithError(err).Fatal("power-switch")
	}
}

// opener claims the output line.
type opener func(cfg gpio.Config) (gpio.Pin, error)

// dialer connects an event publisher, giving up when ctx is done.
type dialer func(ctx context.Context, broker, topic string) (mqtt.Publisher, error)

func dialMQTT(ctx context.Context, broker, topic string) (mqtt.Publisher, error) {
	p, err := mqtt.NewRealPublisher(ctx, broker, topic)
	if err != nil {
		return nil, err
	}
	return p, nil
}

type config struct {
	gpio        gpio.Config
	activeLow   bool
	settle      time.Duration
	rebootPause time.Duration
	broker      string
	topic       string
	printState  bool
	logLevel    string
}

func newRootCmd(open opener, dial dialer) *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "power-switch <on|off|reboot>",
		Short: "Power a device on, off or through a reboot via a GPIO line",
		Long: `Drive one GPIO output line to switch an external device.

  on      set the line HIGH (device on)
  off     set the line LOW (device off)
  reboot  set LOW, wait --reboot-pause, set HIGH

Any other argument leaves the line untouched. The line is released after
--settle in every case. Every flag can also be set through the environment,
e.g. POWER_SWITCH_PIN=17.`,
		Args:          cobra.ArbitraryArgs,
		ValidArgs:     []string{string(power.CommandOn), string(power.CommandOff), string(power.CommandReboot)},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			logger, err := logging.New(cmd.ErrOrStderr(), cfg.logLevel)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, stop, cfg, args, open, dial, logger, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.String("backend", gpio.DefaultBackend, "GPIO backend: gpiocdev, rpio or periph")
	f.String("chip", gpio.DefaultChip, "GPIO chip (gpiocdev backend)")
	f.Int("pin", gpio.DefaultPin, "BCM pin number of the output line")
	f.Bool("active-low", false, "Invert the line: on drives it low")
	f.Duration("settle", power.DefaultSettle, "Delay before releasing the line")
	f.Duration("reboot-pause", power.DefaultRebootPause, "Time the device is held off during reboot")
	f.String("broker", "", "MQTT broker for power events (empty to disable)")
	f.String("topic", mqtt.DefaultTopic, "MQTT topic for power events")
	f.Bool("print-state", false, "Print the resulting line state")
	f.String("log-level", logging.DefaultLevel, "Log level: debug, info, warn, error")

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(f); err != nil {
		panic(err)
	}

	return cmd
}

func loadConfig(v *viper.Viper) (config, error) {
	cfg := config{
		gpio: gpio.Config{
			Backend: v.GetString("backend"),
			Chip:    v.GetString("chip"),
		},
		broker:   v.GetString("broker"),
		topic:    v.GetString("topic"),
		logLevel: v.GetString("log-level"),
	}

	// viper's typed getters turn unparsable environment values into zero,
	// so numeric and boolean keys go through the erroring cast functions.
	var err error
	if cfg.gpio.Pin, err = cast.ToIntE(v.Get("pin")); err != nil {
		return cfg, fmt.Errorf("invalid pin %q: %w", v.GetString("pin"), err)
	}
	if cfg.settle, err = cast.ToDurationE(v.Get("settle")); err != nil {
		return cfg, fmt.Errorf("invalid settle %q: %w", v.GetString("settle"), err)
	}
	if cfg.rebootPause, err = cast.ToDurationE(v.Get("reboot-pause")); err != nil {
		return cfg, fmt.Errorf("invalid reboot-pause %q: %w", v.GetString("reboot-pause"), err)
	}
	if cfg.activeLow, err = cast.ToBoolE(v.Get("active-low")); err != nil {
		return cfg, fmt.Errorf("invalid active-low %q: %w", v.GetString("active-low"), err)
	}
	if cfg.printState, err = cast.ToBoolE(v.Get("print-state")); err != nil {
		return cfg, fmt.Errorf("invalid print-state %q: %w", v.GetString("print-state"), err)
	}

	if !gpio.ValidBackend(cfg.gpio.Backend) {
		return cfg, fmt.Errorf("unknown backend %q", cfg.gpio.Backend)
	}
	if cfg.gpio.Pin < 0 {
		return cfg, fmt.Errorf("pin must not be negative, got %d", cfg.gpio.Pin)
	}
	if cfg.settle < 0 || cfg.rebootPause < 0 {
		return cfg, errors.New("delays must not be negative")
	}
	return cfg, nil
}

// run owns the line from claim to release. Release is deferred so it happens
// on every return path, including interrupts and hardware errors.
func run(ctx context.Context, stop context.CancelFunc, cfg config, args []string, open opener, dial dialer, logger log.Interface, out io.Writer) error {
	pin, err := open(cfg.gpio)
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}

	ctrl := power.NewController(pin, power.Options{
		RebootPause: cfg.rebootPause,
		Settle:      cfg.settle,
		ActiveLow:   cfg.activeLow,
		Logger:      logger,
	})
	defer func() {
		if err := ctrl.Release(); err != nil {
			logger.WithError(err).Warn("release pin")
		}
	}()

	logger.WithFields(log.Fields{
		"backend": cfg.gpio.Backend,
		"pin":     cfg.gpio.Pin,
	}).Debug("pin claimed")

	var arg string
	if len(args) > 0 {
		arg = args[0]
	}
	if len(args) > 1 {
		logger.WithField("ignored", strings.Join(args[1:], " ")).Debug("extra arguments")
	}

	res, err := ctrl.Run(ctx, arg)
	if err != nil {
		if ctx.Err() != nil {
			return interrupted(stop, logger)
		}
		return err
	}

	if res.Dispatched && cfg.broker != "" {
		publish(ctx, dial, cfg, res, logger)
		if ctx.Err() != nil {
			return interrupted(stop, logger)
		}
	}

	if cfg.printState {
		fmt.Fprintf(out, "pin %d: %s\n", cfg.gpio.Pin, res.Level)
	}
	return nil
}

// interrupted restores default signal handling, so a second signal kills the
// process, and lets the deferred release run.
func interrupted(stop context.CancelFunc, logger log.Interface) error {
	stop()
	logger.Warn("interrupted, releasing pin")
	return nil
}

// publish reports the command on MQTT. Failures are logged and never fail
// the run. Cancelling ctx abandons the connect or publish wait.
func publish(ctx context.Context, dial dialer, cfg config, res power.Result, logger log.Interface) {
	pub, err := dial(ctx, cfg.broker, cfg.topic)
	if err != nil {
		logger.WithError(err).Warn("mqtt connect")
		return
	}
	defer pub.Close()

	event := mqtt.Event{
		Timestamp: res.Started,
		Command:   res.Command,
		Pin:       cfg.gpio.Pin,
		Level:     res.Level,
	}
	if err := pub.Publish(ctx, event); err != nil {
		logger.WithError(err).Warn("publish power event")
		return
	}
	logger.WithField("topic", cfg.topic).Info("published power event")
}
