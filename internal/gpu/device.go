//go:build !nogpu

package gpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/sprite"
)

// InstanceCreator creates HAL instances. Every hal backend and
// hal/noop.API satisfy it.
type InstanceCreator interface {
	CreateInstance(desc *hal.InstanceDescriptor) (hal.Instance, error)
}

// Device is an opened GPU device and its queue.
type Device struct {
	Device      hal.Device
	Queue       hal.Queue
	AdapterName string

	instance hal.Instance
	owned    bool
}

// OpenBackend opens a device on a registered backend. The backend
// package must be linked in, e.g. with a blank import of
// github.com/gogpu/wgpu/hal/vulkan.
func OpenBackend(variant gputypes.Backend) (*Device, error) {
	backend, ok := hal.GetBackend(variant)
	if !ok {
		return nil, fmt.Errorf("%w: backend %v not registered", sprite.ErrNoDevice, variant)
	}
	return OpenDevice(backend)
}

// OpenDevice creates an instance and opens the first discrete or
// integrated adapter, falling back to the first adapter listed.
func OpenDevice(creator InstanceCreator) (*Device, error) {
	instance, err := creator.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return nil, fmt.Errorf("%w: create instance: %w", sprite.ErrNoDevice, err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("%w: no adapters found", sprite.ErrNoDevice)
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("%w: open device: %w", sprite.ErrNoDevice, err)
	}
	slogger().Info("gpu: adapter selected", "name", selected.Info.Name)
	return &Device{
		Device:      openDev.Device,
		Queue:       openDev.Queue,
		AdapterName: selected.Info.Name,
		instance:    instance,
		owned:       true,
	}, nil
}

// WrapDevice adopts a device owned by someone else. Close will not
// destroy it.
func WrapDevice(device hal.Device, queue hal.Queue) *Device {
	return &Device{Device: device, Queue: queue}
}

// FromProvider extracts HAL objects from a host that exposes them via
// HalDevice() any and HalQueue() any, such as a gogpu application.
func FromProvider(provider any) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, fmt.Errorf("%w: provider does not expose HAL types", sprite.ErrNoDevice)
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: provider HalDevice is not hal.Device", sprite.ErrNoDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: provider HalQueue is not hal.Queue", sprite.ErrNoDevice)
	}
	return WrapDevice(device, queue), nil
}

// Owned reports whether Close destroys the device.
func (d *Device) Owned() bool { return d.owned }

// Close destroys the device and instance if they were opened here.
// Safe to call more than once.
func (d *Device) Close() {
	if d == nil {
		return
	}
	if d.owned {
		if d.Device != nil {
			d.Device.Destroy()
		}
		if d.instance != nil {
			d.instance.Destroy()
		}
	}
	d.Device = nil
	d.Queue = nil
	d.instance = nil
	d.owned = false
}
