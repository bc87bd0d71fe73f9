package nodeboard

import (
	"fmt"
	"strings"
	"sync"
)

// Theme is the dashboard color theme.
type Theme string

const (
	// ThemeLight is the default theme: the root element has no dark class.
	ThemeLight Theme = "light"

	// ThemeDark marks the root element with the dark class.
	ThemeDark Theme = "dark"
)

// darkClass is the class toggled on the page's root element.
const darkClass = "dark"

// String returns the theme name.
func (t Theme) String() string {
	return string(t)
}

// ParseTheme converts "light" or "dark" (case-insensitive) into a [Theme].
func ParseTheme(s string) (Theme, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "light":
		return ThemeLight, nil
	case "dark":
		return ThemeDark, nil
	default:
		return "", fmt.Errorf("unknown theme %q (expected 'light' or 'dark')", s)
	}
}

// ThemeNotifier is told about every theme change, such as an embedded chat
// widget that restyles itself to match the dashboard.
type ThemeNotifier interface {
	ChangeTheme(theme Theme)
}

// ThemeNotifierFunc adapts a function to [ThemeNotifier].
type ThemeNotifierFunc func(theme Theme)

// ChangeTheme calls f(theme).
func (f ThemeNotifierFunc) ChangeTheme(theme Theme) {
	f(theme)
}

// themeRoot is the element carrying the dark class.
type themeRoot interface {
	ToggleRootClass(class string) bool
	SetRootClass(class string, on bool)
	RootHasClass(class string) bool
}

// themeSwitch flips the dark class and reports each flip to the notifiers.
// Notifiers run under the switch's lock so they observe toggles in order.
type themeSwitch struct {
	mu        sync.Mutex
	root      themeRoot
	notifiers []ThemeNotifier
}

func newThemeSwitch(root themeRoot, initial Theme, notifiers ...ThemeNotifier) *themeSwitch {
	root.SetRootClass(darkClass, initial == ThemeDark)
	return &themeSwitch{root: root, notifiers: notifiers}
}

func (s *themeSwitch) toggle() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()

	theme := themeOf(s.root.ToggleRootClass(darkClass))
	for _, n := range s.notifiers {
		n.ChangeTheme(theme)
	}
	return theme
}

func (s *themeSwitch) current() Theme {
	return themeOf(s.root.RootHasClass(darkClass))
}

func themeOf(dark bool) Theme {
	if dark {
		return ThemeDark
	}
	return ThemeLight
}
