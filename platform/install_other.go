//go:build !windows

package platform

// RegisterApp is a no-op outside Windows; package managers own the list of
// installed programs there.
func RegisterApp(registryKey string, info AppInfo, perMachine bool) error {
	return nil
}

// UnregisterApp is a no-op outside Windows.
func UnregisterApp(registryKey string, perMachine bool) error {
	return nil
}
