// Command alestation runs a standalone ALE station: it loads its address,
// scanlist table, and radio/modem configuration from a config directory,
// then drives the station's scheduler loop until interrupted.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"os/user"
	"path/filepath"
	"syscall"

	"github.com/kb9vnr/goale/internal/alelog"
	"github.com/kb9vnr/goale/internal/audio"
	"github.com/kb9vnr/goale/internal/config"
	"github.com/kb9vnr/goale/internal/modem"
	"github.com/kb9vnr/goale/internal/monitor"
	"github.com/kb9vnr/goale/internal/radio"
	"github.com/kb9vnr/goale/internal/station"
)

func defaultConfigDir() string {
	if u, err := user.Current(); err == nil {
		return filepath.Join(u.HomeDir, ".ale")
	}
	return ".ale"
}

func main() {
	configDir := flag.String("config-dir", defaultConfigDir(), "Station config directory")
	address := flag.String("address", "", "Self ALE address, required unless set in config")
	monitorAddr := flag.String("monitor-addr", "", "Dashboard listen address, e.g. :8080 (disabled if empty)")
	textMode := flag.Bool("text-mode", false, "Run with a null modem and no radio control, for testing without audio hardware")
	listDevices := flag.Bool("list-devices", false, "List audio devices and exit")
	flag.Parse()

	if *listDevices {
		if err := audio.Init(); err != nil {
			log.Fatalf("alestation: portaudio init: %v", err)
		}
		defer audio.Terminate()
		if err := audio.PrintDevices(); err != nil {
			log.Fatalf("alestation: list devices: %v", err)
		}
		return
	}

	cfgFile, err := config.LoadFile(*configDir, *address)
	if err != nil {
		log.Fatalf("alestation: %v", err)
	}
	scanlists, err := config.LoadScanlists(*configDir)
	if err != nil {
		log.Fatalf("alestation: %v", err)
	}

	logQueue, err := alelog.New(config.LogPath(*configDir))
	if err != nil {
		log.Fatalf("alestation: log: %v", err)
	}

	var mdm station.Modem
	var rad station.Radio
	if *textMode {
		mdm = modem.NewNullModem(cfgFile.Modem.Baudrate)
		rad = radio.NoopRadio{}
	} else {
		if err := audio.Init(); err != nil {
			log.Fatalf("alestation: portaudio init: %v", err)
		}
		defer audio.Terminate()

		io := audio.NewAudioIO()
		if err := io.OpenDuplex(); err != nil {
			log.Fatalf("alestation: open audio duplex: %v", err)
		}
		defer io.Close()
		am, err := modem.NewAudioModem(io)
		if err != nil {
			log.Fatalf("alestation: modem: %v", err)
		}
		if err := am.Start(); err != nil {
			log.Fatalf("alestation: start modem: %v", err)
		}
		defer am.Stop()
		mdm = am

		if cfgFile.Radio.SerialPort != "" {
			sr, err := radio.NewSerialRadio(cfgFile.Radio.SerialPort, 9600)
			if err != nil {
				log.Fatalf("alestation: radio: %v", err)
			}
			rad = sr
		} else {
			rad = radio.NoopRadio{}
		}
	}

	cfg := station.Config{
		Address:        cfgFile.Address,
		GroupAddresses: cfgFile.GroupAddresses,
		Whitelist:      cfgFile.Whitelist,
		Blacklist:      cfgFile.Blacklist,
		Scanlists:      scanlists,
		ScanlistName:   cfgFile.Scanlist,
	}
	st := station.New(cfg, mdm, rad, logQueue)
	st.LQA().LoadHistory(config.LQAHistoryPath(*configDir))

	stopCuller := make(chan struct{})
	go st.LQA().RunCuller(stopCuller)
	defer close(stopCuller)

	if *monitorAddr != "" {
		metrics := monitor.NewMetrics()
		hub := monitor.NewHub()
		obs := monitor.NewStationObserver(metrics, hub)
		st.SetObserver(obs)
		go obs.WatchHistorySize(st)

		handlers := monitor.NewHandlers(st, hub)
		srv := monitor.NewServer(*monitorAddr, handlers)
		go func() {
			if err := srv.Start(); err != nil {
				log.Printf("alestation: monitor server: %v", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nalestation: shutting down...")
		st.Stop()
		if err := st.LQA().SaveHistory(config.LQAHistoryPath(*configDir)); err != nil {
			log.Printf("alestation: save LQA history: %v", err)
		}
		if err := logQueue.Flush(); err != nil {
			log.Printf("alestation: flush log: %v", err)
		}
		os.Exit(0)
	}()

	st.Run()
}
