//go:build darwin

package platform

import (
	"fmt"
	"html"
	"os"
	"strings"
)

const plistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
%s    </array>
    <key>WorkingDirectory</key>
    <string>%s</string>
    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`

func shortcutExt(startup bool) string {
	if startup {
		return ".plist"
	}
	return ""
}

// CreateShortcut creates a symlink at path, or a LaunchAgent property list
// when path ends in .plist (startup shortcuts).
func CreateShortcut(path string, s Shortcut) error {
	if err := prepareShortcut(path, s); err != nil {
		return err
	}
	if !strings.HasSuffix(path, ".plist") {
		return os.Symlink(s.Target, path)
	}

	var args strings.Builder
	for _, a := range append([]string{s.Target}, strings.Fields(s.Arguments)...) {
		fmt.Fprintf(&args, "        <string>%s</string>\n", html.EscapeString(a))
	}
	label := "setupkit." + strings.ToLower(strings.ReplaceAll(s.Name, " ", "-"))
	content := fmt.Sprintf(plistTemplate, html.EscapeString(label), args.String(), html.EscapeString(s.workingDir()))
	return os.WriteFile(path, []byte(content), 0644)
}
