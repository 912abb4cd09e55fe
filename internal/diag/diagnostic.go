package diag

import (
	"fmt"
	"strings"
)

// Site locates a runtime diagnostic: the scope that was rendering or owned
// the failing task, the component it runs, the template it last rendered and
// optionally an element.
type Site struct {
	Scope     uint64
	HasScope  bool
	Component string
	Template  string
	Element   uint64
	Task      uint64
}

// AtScope builds a Site for a scope.
func AtScope(id uint64, component, template string) Site {
	return Site{Scope: id, HasScope: true, Component: component, Template: template}
}

func (s Site) String() string {
	var parts []string
	if s.HasScope {
		if s.Component != "" {
			parts = append(parts, fmt.Sprintf("scope %d <%s>", s.Scope, s.Component))
		} else {
			parts = append(parts, fmt.Sprintf("scope %d", s.Scope))
		}
	}
	if s.Template != "" {
		parts = append(parts, "template "+s.Template)
	}
	if s.Task != 0 {
		parts = append(parts, fmt.Sprintf("task %d", s.Task))
	}
	if s.Element != 0 {
		parts = append(parts, fmt.Sprintf("element %d", s.Element))
	}
	if len(parts) == 0 {
		return "runtime"
	}
	return strings.Join(parts, ", ")
}

type Note struct {
	Site Site
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  Site
	Notes    []Note
}
