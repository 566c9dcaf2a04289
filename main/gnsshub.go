/*
	Copyright (c) 2023 the gnsshub authors
	Distributable under the terms of The "BSD New" License
	that can be found in the LICENSE file, herein included
	as part of this header.

	gnsshub.go: command line monitor. Connects to a GNSS receiver over a
	serial port (or replays a raw capture), prints decoded traffic, sends a
	few configuration polls and shows their acknowledgment status.
*/
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gnsshub/config"
	"gnsshub/datalog"
	"gnsshub/session"
	"gnsshub/tracker"
	"gnsshub/ubx"
)

func main() {
	var configPath string
	var portOverride string
	flag.StringVar(&configPath, "config", "", "Path to YAML config (optional)")
	flag.StringVar(&portOverride, "port", "", "Serial port, overrides the config")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
	}
	if portOverride != "" {
		cfg.Serial.Port = portOverride
		cfg.Replay.Enable = false
	}

	var transport session.Transport
	var err error
	if cfg.Replay.Enable {
		transport, err = session.OpenPlayback(cfg.Replay.Path)
	} else {
		transport, err = session.OpenSerial(cfg.Serial.Port, cfg.Serial.BaudRates)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}

	opts := session.Options{
		AckTimeout:      time.Duration(cfg.Tracker.AckTimeout),
		SweepInterval:   time.Duration(cfg.Tracker.SweepInterval),
		ResolvedBacklog: cfg.Tracker.ResolvedBacklog,
	}
	if cfg.Datalog.Enable {
		dl, err := datalog.Open(cfg.Datalog.Path)
		if err != nil {
			log.Fatalf("%v", err)
		}
		defer dl.Close()
		opts.Log = dl
	}

	if cfg.Metrics.Listen != "" {
		go func() {
			http.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(cfg.Metrics.Listen, nil); err != nil {
				log.Printf("metrics: %v", err)
			}
		}()
	}

	coord := session.New(transport, opts)
	messages := coord.Subscribe("console", 200)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Printf("shutting down")
		coord.Stop()
	}()

	go console(coord, messages)

	if !cfg.Replay.Enable {
		go pollReceiverConfig(coord)
	}

	if err := coord.Run(); err != nil {
		log.Fatalf("%v", err)
	}
}

// pollReceiverConfig asks the receiver for its current configuration and
// enables the NMEA sentences we want, so the tracker path is exercised on
// every startup.
func pollReceiverConfig(coord *session.Coordinator) {
	// Empty payloads poll the current values.
	coord.Submit(ubx.ClassCFG, 0x00, nil, tracker.ModePoll) // CFG-PRT
	coord.Submit(ubx.ClassCFG, 0x08, nil, tracker.ModePoll) // CFG-RATE
	coord.Submit(ubx.ClassCFG, 0x24, nil, tracker.ModePoll) // CFG-NAV5

	// CFG-MSG: enable GGA and RMC on UART1 and USB.
	coord.Submit(ubx.ClassCFG, 0x01, []byte{0xF0, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00}, tracker.ModeSet)
	coord.Submit(ubx.ClassCFG, 0x01, []byte{0xF0, 0x04, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00}, tracker.ModeSet)
}

// console prints decoded traffic and a periodic command status summary.
func console(coord *session.Coordinator, messages <-chan session.Message) {
	statusTicker := time.NewTicker(5 * time.Second)
	defer statusTicker.Stop()

	var count int64
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				log.Printf("console: received %s messages total, %d dropped",
					humanize.Comma(count), coord.Drops("console"))
				return
			}
			count++
			printMessage(msg)
		case <-statusTicker.C:
			printCommandStatus(coord)
		}
	}
}

func printMessage(msg session.Message) {
	switch {
	case msg.DecodeErr != nil:
		log.Printf("%-5s %v", msg.Frame.Protocol, msg.DecodeErr)
	case msg.Sentence != nil:
		log.Printf("%-5s %s%s %s", msg.Frame.Protocol, msg.Sentence.Talker,
			msg.Sentence.Type, strings.Join(msg.Sentence.Fields, ","))
	case msg.Ubx != nil:
		log.Printf("%-5s %s %s", msg.Frame.Protocol, msg.Ubx.Name, summarizeUBX(msg.Ubx))
	}
}

// summarizeUBX prints the handful of fields worth seeing at a glance.
func summarizeUBX(m *ubx.Message) string {
	var parts []string
	for _, name := range []string{"lat", "lon", "hMSL", "numSV", "numCh", "numSvs", "gpsFix", "fixType", "clsID", "msgID"} {
		if v, ok := m.Fields[name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", name, v))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprintf("(%d byte payload)", len(m.Payload))
	}
	return strings.Join(parts, " ")
}

func printCommandStatus(coord *session.Coordinator) {
	cmds := coord.Tracker().Commands()
	if len(cmds) == 0 {
		return
	}
	for _, cmd := range cmds {
		age := humanize.Time(cmd.SubmittedAt)
		switch cmd.Status {
		case tracker.StatusPending:
			log.Printf("cmd %-9s %s class=0x%02X id=0x%02X sent %s",
				cmd.Status, cmd.Mode, cmd.Class, cmd.ID, age)
		default:
			log.Printf("cmd %-9s %s class=0x%02X id=0x%02X sent %s (%s)",
				cmd.Status, cmd.Mode, cmd.Class, cmd.ID, age, cmd.Outcome)
		}
	}
}
