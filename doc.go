/*
Package setupkit describes installer scripts: what is installed, where the
files go, which optional tasks the user may pick, and which shortcuts,
launch entries and uninstall cleanups follow from those choices.

An installer script is a declarative file with the same sections as an
Inno Setup script (Setup, Files, Tasks, Icons, Run, UninstallDelete):

	setup:
	  app_id: "{{5B2C1E7A-3F4D-4C8B-9A61-2E7D0F3B8C14}"
	  app_name: TimeDateWeather
	  version: 1.0.0
	  publisher: MS-I
	  default_dir: '{autopf}\{appname}'
	files:
	  - source: dist/TimeDateWeather.exe
	    dest_dir: '{app}'
	    flags: [ignoreversion]
	tasks:
	  - name: desktopicon
	    description: Create a desktop shortcut
	icons:
	  - name: '{appname}'
	    target: '{app}\TimeDateWeather.exe'
	  - name: '{appname}'
	    target: '{app}\TimeDateWeather.exe'
	    location: desktop
	    tasks: desktopicon

Load the script with Load:

	cfg, err := setupkit.Load("setup.yaml")
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Println(cfg.Spec.PackageFilename()) // TimeDateWeather-1.0.0-setup.exe

Every section is validated at load time, so a malformed entry fails before
anything is installed. The installer package runs the loaded script.

# Task Conditions

Icons and Run entries may be gated by a task expression. Operands are task
names; "and", "or", "not" and parentheses combine them:

	tasks: desktopicon and not startupicon

See CompileCondition.
*/
package setupkit
