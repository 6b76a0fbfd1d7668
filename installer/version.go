package installer

import (
	"strings"

	goversion "github.com/hashicorp/go-version"
)

// CompareVersions orders two version strings: negative if v1 sorts before
// v2, zero if they are equal, positive otherwise. "1.0" equals "1.0.0" and
// a pre-release sorts before its release. Strings that are not versions
// sort before every valid version and lexically among themselves.
func CompareVersions(v1, v2 string) int {
	a, errA := goversion.NewVersion(v1)
	b, errB := goversion.NewVersion(v2)
	switch {
	case errA == nil && errB == nil:
		return a.Compare(b)
	case errA != nil && errB != nil:
		return strings.Compare(v1, v2)
	case errA != nil:
		return -1
	default:
		return 1
	}
}

// InstallAction is what an install does relative to the installation
// already on the system.
type InstallAction string

const (
	ActionFreshInstall InstallAction = "fresh install"
	ActionUpgrade      InstallAction = "upgrade"
	ActionDowngrade    InstallAction = "downgrade"
	ActionReinstall    InstallAction = "reinstall"
)

// ReplacesInstallation reports whether the action overwrites a previous
// installation whose record is merged into the new one.
func (a InstallAction) ReplacesInstallation() bool {
	return a != ActionFreshInstall && a != ""
}

// DetermineAction compares the installed version with the one about to be
// installed. An empty existingVersion means nothing is installed.
func DetermineAction(existingVersion, newVersion string) InstallAction {
	if existingVersion == "" {
		return ActionFreshInstall
	}
	switch cmp := CompareVersions(newVersion, existingVersion); {
	case cmp > 0:
		return ActionUpgrade
	case cmp < 0:
		return ActionDowngrade
	default:
		return ActionReinstall
	}
}
