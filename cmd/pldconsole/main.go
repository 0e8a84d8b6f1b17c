// pldconsole is a headless console for the PLD instrument.
//
// It opens the configured serial port (or an in-process simulated instrument with
// -simulate), sends the commands listed with -cmd, polls housekeeping when the
// poller is enabled, keeps the received packets in bounded rings and logs every
// exchange. SIGINT or SIGTERM shuts it down.
//
// Setting ENV=development renders logs with the colored console handler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/go-pldlink/codec"
	"github.com/arloliu/go-pldlink/config"
	"github.com/arloliu/go-pldlink/dispatcher"
	"github.com/arloliu/go-pldlink/events"
	"github.com/arloliu/go-pldlink/logger"
	"github.com/arloliu/go-pldlink/poller"
	"github.com/arloliu/go-pldlink/session"
	"github.com/arloliu/go-pldlink/simulator"
	"github.com/arloliu/go-pldlink/store"
	"github.com/arloliu/go-pldlink/transport"
)

const simulatedPort = "sim0"

var log logger.Logger

func main() {
	cfgPath := flag.String("config", "", "path to the YAML configuration file")
	portName := flag.String("port", "", "serial port name, overrides serial.port")
	list := flag.Bool("list", false, "print the available serial ports and exit")
	simulate := flag.Bool("simulate", false, "talk to a simulated instrument instead of a serial port")
	cmds := flag.String("cmd", "", "comma separated commands sent once after opening, e.g. science,debug,control:instrument-1=on,tone,pass:0a0b")
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *portName != "" {
		cfg.Serial.Port = *portName
	}

	reqs, err := parseRequests(*cmds, time.Now)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, _ := logger.ParseLevel(cfg.Log.Level)
	log = logger.NewSlog(level, cfg.Log.AddSource)
	logger.SetLogger(log)

	if *list {
		if err := listPorts(); err != nil {
			log.Error("failed to list serial ports", "error", err)
			os.Exit(1)
		}

		return
	}

	if err := run(cfg, *simulate, reqs); err != nil {
		log.Error("console stopped", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func listPorts() error {
	tr, err := transport.New(transport.WithLogger(log))
	if err != nil {
		return err
	}

	ports, err := tr.ListPorts()
	if err != nil {
		return err
	}

	if len(ports) == 0 {
		fmt.Println("no serial ports found")
		return nil
	}
	for _, name := range ports {
		fmt.Println(name)
	}

	return nil
}

func run(cfg *config.Config, simulate bool, reqs []request) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hub, err := events.NewHub(events.WithLogger(log))
	if err != nil {
		return err
	}
	defer hub.Close()

	hub.Subscribe(events.LogHandler(log))

	if cfg.Log.FrameLog != "" {
		f, err := os.OpenFile(cfg.Log.FrameLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open frame log: %w", err)
		}
		defer f.Close()

		hub.Subscribe(events.NewTextWriter(f, log).Handle)
	}

	trOpts := []transport.Option{
		transport.WithLogger(log),
		transport.WithStateHandler(hub.StateHandler()),
	}

	portName := cfg.Serial.Port
	if simulate {
		inst := simulator.New(simulator.WithLogger(log), simulator.WithLatency(20*time.Millisecond))
		trOpts = append(trOpts,
			transport.WithPortOpener(inst.Opener()),
			transport.WithPortLister(inst.Lister(simulatedPort)),
		)
		portName = simulatedPort
	}

	tr, err := transport.New(trOpts...)
	if err != nil {
		return err
	}

	if portName == "" {
		ports, err := tr.ListPorts()
		if err != nil {
			return err
		}
		if len(ports) == 0 {
			return errors.New("no serial port configured and none found")
		}
		portName = ports[0]
	}

	sess, err := session.New(tr, session.WithLogger(log), session.WithHub(hub))
	if err != nil {
		return err
	}

	if err := sess.Open(portName); err != nil {
		return err
	}
	defer sess.Close()

	log.Info("port opened", "port", portName, "simulated", simulate)

	packets, err := store.New(cfg.Store.Capacity)
	if err != nil {
		return err
	}
	packets.OnNew(func(rec store.Record) {
		if hk, ok := rec.Packet.(*codec.Housekeeping); ok {
			log.Info("housekeeping",
				"uptime", hk.Uptime,
				"+5V", hk.Voltage(codec.RailPos5V),
				"3V3", hk.Voltage(codec.Rail3V3),
				"boardTemp", hk.Temperature(codec.TempBoard),
				"fpgaTemp", hk.Temperature(codec.TempFPGA),
			)
		}
	})

	disp, err := dispatcher.New(sess,
		dispatcher.WithWorkers(cfg.Dispatcher.Workers),
		dispatcher.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer closeDispatcher(disp)

	poll, err := poller.New(disp,
		poller.WithInterval(cfg.Poller.Interval()),
		poller.WithHandler(packets.Collect),
		poller.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer poll.Close()

	// read the configuration table once so the operator sees what the instrument runs with
	if _, err := disp.GetConfig(func(out session.Outcome) {
		packets.Collect(out)
		if !out.OK() {
			log.Warn("initial configuration read failed", "error", out.Error())
		}
	}); err != nil {
		return err
	}

	for _, req := range reqs {
		name := req.name
		if _, err := req.submit(disp, func(out session.Outcome) {
			packets.Collect(out)
			if out.OK() {
				log.Info("command done", "command", name, "packet", out.Packet.Kind(), "elapsed", out.Elapsed)
			} else {
				log.Warn("command failed", "command", name, "error", out.Error())
			}
		}); err != nil {
			return err
		}
	}

	poll.Toggle(cfg.Poller.Enabled)

	<-ctx.Done()
	log.Info("exit signal received")

	for _, st := range packets.Stats() {
		if st.Total > 0 {
			log.Info("packets received", "kind", st.Kind, "total", st.Total, "kept", st.Len)
		}
	}

	return nil
}

func closeDispatcher(d *dispatcher.Dispatcher) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatcher.DefaultCloseTimeout)
	defer cancel()

	if err := d.Close(ctx); err != nil {
		log.Warn("dispatcher close", "error", err)
	}
}
