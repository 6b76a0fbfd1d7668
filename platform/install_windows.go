//go:build windows

package platform

import (
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const uninstallKeyBase = `SOFTWARE\Microsoft\Windows\CurrentVersion\Uninstall\`

// RegisterApp creates the Add/Remove Programs entry for an installation.
// Per-machine installs write under HKLM (requires elevation), per-user
// installs under HKCU. The registryKey should be unique to the application,
// typically its AppID followed by "_is1".
func RegisterApp(registryKey string, info AppInfo, perMachine bool) error {
	key, _, err := registry.CreateKey(rootKey(perMachine), uninstallKeyBase+registryKey, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("create registry key: %w", err)
	}
	defer key.Close()

	for _, v := range info.stringValues() {
		if err := key.SetStringValue(v.name, v.value); err != nil {
			return fmt.Errorf("set %s: %w", v.name, err)
		}
	}

	dwords := []struct {
		name  string
		value uint32
		set   bool
	}{
		{"NoModify", 1, info.NoModify},
		{"NoRepair", 1, info.NoRepair},
		{"EstimatedSize", info.EstimatedSize, info.EstimatedSize > 0},
	}
	for _, d := range dwords {
		if !d.set {
			continue
		}
		if err := key.SetDWordValue(d.name, d.value); err != nil {
			return fmt.Errorf("set %s: %w", d.name, err)
		}
	}
	return nil
}

// UnregisterApp removes the Add/Remove Programs entry. A missing key is not an error.
func UnregisterApp(registryKey string, perMachine bool) error {
	err := registry.DeleteKey(rootKey(perMachine), uninstallKeyBase+registryKey)
	if err != nil && err != registry.ErrNotExist {
		return fmt.Errorf("delete registry key: %w", err)
	}
	return nil
}

func rootKey(perMachine bool) registry.Key {
	if perMachine {
		return registry.LOCAL_MACHINE
	}
	return registry.CURRENT_USER
}
