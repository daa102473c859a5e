package config

import (
	"os"
	"path/filepath"
	"testing"

	D "mipscore/emu/device"
)

func init() {
	RegisterDevice("testdev", func(offset uint32, opts []Option) (D.Device, error) {
		return nil, nil
	})
}

func writeTemp(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "machine.cfg")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadFileParsesScalarSettings(t *testing.T) {
	path := writeTemp(t, "memory 0x100000\nsp 0x7ffffffc\npipeline off\nforwarding off\ndelayedbranch on\nxmitdelay 10\n")
	settings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if settings.MemoryWords != 0x100000 {
		t.Errorf("MemoryWords = %#x", settings.MemoryWords)
	}
	if settings.StackPointer != 0x7ffffffc {
		t.Errorf("StackPointer = %#x", settings.StackPointer)
	}
	if settings.Pipeline || settings.Forwarding || !settings.DelayedBranch {
		t.Errorf("got pipeline=%v forwarding=%v delayedbranch=%v", settings.Pipeline, settings.Forwarding, settings.DelayedBranch)
	}
	if settings.TransmitDelay != 10 {
		t.Errorf("TransmitDelay = %d", settings.TransmitDelay)
	}
}

func TestLoadFileParsesDeviceLineWithOptions(t *testing.T) {
	path := writeTemp(t, "# comment line\nterminal 0x1000 name=console,echo\n")
	settings, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(settings.Devices) != 1 {
		t.Fatalf("got %d devices, want 1", len(settings.Devices))
	}
	spec := settings.Devices[0]
	if spec.Name != "terminal" || spec.Offset != 0x1000 {
		t.Errorf("got %+v", spec)
	}
	if len(spec.Options) != 1 || spec.Options[0].Name != "name" || spec.Options[0].EqualOpt != "console" {
		t.Fatalf("got options %+v", spec.Options)
	}
	if len(spec.Options[0].Value) != 1 || spec.Options[0].Value[0] != "echo" {
		t.Errorf("got value list %+v", spec.Options[0].Value)
	}
}

func TestBuildDevicesRejectsUnknownName(t *testing.T) {
	settings := DefaultSettings()
	settings.Devices = []DeviceSpec{{Name: "nosuchdevice", Offset: 0}}
	if _, _, err := settings.BuildDevices(); err == nil {
		t.Fatalf("expected error for unregistered device")
	}
}

func TestBuildDevicesInvokesRegisteredCtor(t *testing.T) {
	settings := DefaultSettings()
	settings.Devices = []DeviceSpec{{Name: "testdev", Offset: 0x2000}}
	specs, devs, err := settings.BuildDevices()
	if err != nil {
		t.Fatalf("BuildDevices: %v", err)
	}
	if len(specs) != 1 || len(devs) != 1 {
		t.Fatalf("got %d specs, %d devices", len(specs), len(devs))
	}
}
