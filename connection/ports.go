package connection

import (
	"log"
	"sort"

	"go.bug.st/serial"
)

// NoPorts is shown in place of a device name when enumeration finds nothing.
const NoPorts = "No ports available"

var getPortsList = serial.GetPortsList

// AvailablePorts lists the serial devices present on the system.
func AvailablePorts() []string {
	ports, err := getPortsList()
	if err != nil {
		log.Println("error listing ports:", err)
	}
	if len(ports) == 0 {
		return []string{NoPorts}
	}
	sort.Strings(ports)
	return ports
}
