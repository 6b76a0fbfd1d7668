package platform

// AppInfo describes an installed application for the system's list of
// installed programs (Windows Add/Remove Programs).
type AppInfo struct {
	DisplayName     string
	DisplayVersion  string
	Publisher       string
	InstallLocation string
	UninstallString string // Command line that runs the uninstaller

	DisplayIcon   string // Defaults to the uninstaller
	URLInfoAbout  string
	URLUpdateInfo string
	HelpLink      string
	InstallDate   string // YYYYMMDD
	EstimatedSize uint32 // KB
	NoModify      bool
	NoRepair      bool
}

type namedValue struct {
	name  string
	value string
}

// stringValues returns the non-empty string values to register, in a stable order.
func (info AppInfo) stringValues() []namedValue {
	icon := info.DisplayIcon
	if icon == "" {
		icon = info.UninstallString
	}
	all := []namedValue{
		{"DisplayName", info.DisplayName},
		{"DisplayVersion", info.DisplayVersion},
		{"Publisher", info.Publisher},
		{"InstallLocation", info.InstallLocation},
		{"UninstallString", info.UninstallString},
		{"DisplayIcon", icon},
		{"URLInfoAbout", info.URLInfoAbout},
		{"URLUpdateInfo", info.URLUpdateInfo},
		{"HelpLink", info.HelpLink},
		{"InstallDate", info.InstallDate},
	}
	out := all[:0]
	for _, v := range all {
		if v.value != "" {
			out = append(out, v)
		}
	}
	return out
}
