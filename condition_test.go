package setupkit

import "testing"

func TestConditionEval(t *testing.T) {
	known := map[string]bool{"desktopicon": true, "startupicon": true, "quicklaunch": true}
	tests := []struct {
		expr     string
		selected map[string]bool
		want     bool
	}{
		{"", nil, true},
		{"desktopicon", map[string]bool{"desktopicon": true}, true},
		{"desktopicon", nil, false},
		{"desktopicon and startupicon", map[string]bool{"desktopicon": true}, false},
		{"desktopicon or startupicon", map[string]bool{"startupicon": true}, true},
		{"desktopicon and not startupicon", map[string]bool{"desktopicon": true}, true},
		{"not (desktopicon or quicklaunch)", map[string]bool{"quicklaunch": true}, false},
		{"desktopicon AND NOT startupicon", map[string]bool{"desktopicon": true}, true},
	}
	for _, tt := range tests {
		c, err := CompileCondition(tt.expr, known)
		if err != nil {
			t.Fatalf("CompileCondition(%q): %v", tt.expr, err)
		}
		got, err := c.Eval(tt.selected)
		if err != nil {
			t.Fatalf("Eval(%q): %v", tt.expr, err)
		}
		if got != tt.want {
			t.Errorf("%q with %v = %v, want %v", tt.expr, tt.selected, got, tt.want)
		}
	}
}

func TestConditionErrors(t *testing.T) {
	known := map[string]bool{"desktopicon": true}
	for _, expr := range []string{
		"quicklaunch",
		"(desktopicon",
		"desktopicon; rm",
		"and or",
	} {
		if _, err := CompileCondition(expr, known); err == nil {
			t.Errorf("CompileCondition(%q) should fail", expr)
		}
	}

	c, err := CompileCondition("anything", nil)
	if err != nil {
		t.Fatalf("nil known map should accept any name: %v", err)
	}
	if names := c.Names(); len(names) != 1 || names[0] != "anything" {
		t.Fatalf("Names = %v", names)
	}
	if c.String() != "anything" {
		t.Fatalf("String = %q", c.String())
	}
}

func TestValidTaskName(t *testing.T) {
	for name, want := range map[string]bool{
		"desktopicon":  true,
		"_private":     true,
		"icon2":        true,
		"":             false,
		"2icons":       false,
		"desktop-icon": false,
		"and":          false,
		"Not":          false,
		"true":         false,
	} {
		if got := ValidTaskName(name); got != want {
			t.Errorf("ValidTaskName(%q) = %v, want %v", name, got, want)
		}
	}
}
