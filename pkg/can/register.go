package can

import (
	"fmt"

	canplat "github.com/mlajoie/canplat"
)

type NewInterfaceFunc func(channel string) (canplat.Bus, error)

var interfaceRegistry = make(map[string]NewInterfaceFunc)

var ImplementedInterfaces = []string{
	"socketcan",
	"socketcanv2",
	"virtualcan",
	"slcan",
}

// Register a new CAN bus interface type
// This should be called inside an init() function of plugin
func RegisterInterface(interfaceType string, newInterface NewInterfaceFunc) {
	interfaceRegistry[interfaceType] = newInterface
}

// Create a new CAN bus with given interface type and channel.
// The bitrate is informative only, channels are expected to be
// configured beforehand (e.g. with "ip link" for socketcan).
func NewBus(canInterface string, channel string, bitrate int) (canplat.Bus, error) {
	createInterface, ok := interfaceRegistry[canInterface]
	if !ok {
		return nil, fmt.Errorf("unsupported interface : %v", canInterface)
	}
	return createInterface(channel)
}
