package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/ti7w/bandd/pkg/client"
	"github.com/ti7w/bandd/pkg/protocol"
)

var (
	serverURL = flag.StringP("server", "s", "http://localhost:8073", "Daemon API URL")

	loggerAddress = flag.String("logger-address", "", "Set the logger telemetry address")
	loggerPort    = flag.Int("logger-port", 0, "Set the logger telemetry port")
	switchAddress = flag.String("switch-address", "", "Set the antenna switch address")
	switchPort    = flag.Int("switch-port", 0, "Set the antenna switch port")
	radioNumber   = flag.String("radio", "", "Set the antenna switch radio number")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		showHelp()
		os.Exit(1)
	}

	api := client.NewAPIClient(*serverURL)

	var err error
	switch flag.Arg(0) {
	case "status":
		err = runStatus(api)
	case "start":
		err = api.Start()
	case "stop":
		err = api.Stop()
	case "devices":
		err = runDevices(api)
	case "config":
		err = runConfig(api)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", flag.Arg(0))
		showHelp()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runStatus(api *client.APIClient) error {
	status, err := api.GetStatus()
	if err != nil {
		return err
	}

	state := "stopped"
	if status.Active {
		state = "decoding"
	}
	fmt.Printf("bandd %s, %s, up %s\n", status.Version, state, status.Uptime)
	fmt.Printf("  Frequency:   %.1f kHz\n", status.FrequencyKHz)
	fmt.Printf("  Band:        %s (bcd %d, antenna port %d)\n", status.Band, status.BCD, status.SwitchPort)
	if status.SimulationMode {
		fmt.Printf("  Filters:     simulation mode\n")
	}
	if status.LastSwitchStatus != "" {
		fmt.Printf("  Switch:      %s\n", status.LastSwitchStatus)
	}
	return nil
}

func runDevices(api *client.APIClient) error {
	devices, err := api.GetDevices()
	if err != nil {
		return err
	}

	if devices.Simulation {
		fmt.Println("Filter bank is in simulation mode")
	}
	if len(devices.Devices) == 0 {
		fmt.Println("No devices")
		return nil
	}
	for _, dev := range devices.Devices {
		state := "not configured"
		if dev.Configured {
			state = "ok"
		}
		fmt.Printf("  %d: %s [%s]", dev.Slot, dev.URL, state)
		if dev.LastError != "" {
			fmt.Printf(" (%s)", dev.LastError)
		}
		fmt.Println()
	}
	return nil
}

// runConfig shows the settings, or applies the settings flags that
// were given on the command line.
func runConfig(api *client.APIClient) error {
	update := protocol.ConfigUpdate{}
	changed := false

	if flag.Lookup("logger-address").Changed {
		update.LoggerAddress = loggerAddress
		changed = true
	}
	if flag.Lookup("logger-port").Changed {
		update.LoggerPort = loggerPort
		changed = true
	}
	if flag.Lookup("switch-address").Changed {
		update.SwitchAddress = switchAddress
		changed = true
	}
	if flag.Lookup("switch-port").Changed {
		update.SwitchPort = switchPort
		changed = true
	}
	if flag.Lookup("radio").Changed {
		update.SwitchRadioNumber = radioNumber
		changed = true
	}

	var view *protocol.ConfigView
	var err error
	if changed {
		view, err = api.UpdateConfig(update)
	} else {
		view, err = api.GetConfig()
	}
	if err != nil {
		return err
	}

	fmt.Printf("  Logger:  %s:%d\n", view.LoggerAddress, view.LoggerPort)
	fmt.Printf("  Switch:  %s:%d (radio %s)\n", view.SwitchAddress, view.SwitchPort, view.SwitchRadioNumber)
	fmt.Printf("  Forced simulation: %v\n", view.ForceSimulation)
	return nil
}

func showHelp() {
	fmt.Println("bandctl - Band Decoder Control Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  status     Show decoder status")
	fmt.Println("  start      Start decoding")
	fmt.Println("  stop       Stop decoding")
	fmt.Println("  devices    List band-pass filter devices")
	fmt.Println("  config     Show or change settings")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s status\n", os.Args[0])
	fmt.Printf("  %s -s http://shack-pi:8073 devices\n", os.Args[0])
	fmt.Printf("  %s --switch-address 192.168.100.140 config\n", os.Args[0])
}
