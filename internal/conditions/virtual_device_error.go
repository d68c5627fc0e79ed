package conditions

import (
	"context"
	"fmt"
	"slices"

	"github.com/cellwarden/cellwarden/internal/scenario"
)

// VirtualDeviceError queries a client's io_server.failed_virtual_devices
// map. Config: {client? | clients?, device_id?, device_type?,
// physical_device?}. The first failed device passing every filter binds
// device_id, physical_device, error_message, device_type, and client
// into the trigger context.
type VirtualDeviceError struct{}

// Type returns the registration tag.
func (v *VirtualDeviceError) Type() string { return "virtual_device_error" }

// Evaluate scans the selected clients for failed virtual devices.
func (v *VirtualDeviceError) Evaluate(
	_ context.Context,
	cfg map[string]any,
	sc *scenario.Context,
) (bool, map[string]any, error) {
	names, err := cfgStrings(cfg, "clients")
	if err != nil {
		return false, nil, fmt.Errorf("virtual_device_error: %w", err)
	}
	if single := cfgString(cfg, "client"); single != "" {
		names = append(names, single)
	}
	if len(names) == 0 {
		for name := range sc.Clients {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	wantID := cfgString(cfg, "device_id")
	wantType := cfgString(cfg, "device_type")
	wantPhysical := cfgString(cfg, "physical_device")

	for _, name := range names {
		client, ok := sc.Clients[name]
		if !ok {
			continue
		}
		failed := failedVirtualDevices(client)
		for id, raw := range failed {
			device, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			deviceType, _ := device["device_type"].(string)
			physical, _ := device["physical_device"].(string)
			message, _ := device["error_message"].(string)

			if wantID != "" && id != wantID {
				continue
			}
			if wantType != "" && deviceType != wantType {
				continue
			}
			if wantPhysical != "" && physical != wantPhysical {
				continue
			}

			return true, map[string]any{
				"client":          name,
				"device_id":       id,
				"device_type":     deviceType,
				"physical_device": physical,
				"error_message":   message,
			}, nil
		}
	}
	return false, nil, nil
}

// failedVirtualDevices digs the failed device map out of the client's
// io_server subsystem fields.
func failedVirtualDevices(client scenario.ClientState) map[string]any {
	ioServer, ok := client.Subsystems["io_server"].(map[string]any)
	if !ok {
		return nil
	}
	failed, ok := ioServer["failed_virtual_devices"].(map[string]any)
	if !ok {
		return nil
	}
	return failed
}
