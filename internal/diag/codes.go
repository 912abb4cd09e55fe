package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// template shape
	TplInfo          Code = 1000
	TplInvalidShape  Code = 1001
	TplNameConflict  Code = 1002
	TplSlotMismatch  Code = 1003
	TplUnknownForRef Code = 1004

	// render
	RenderInfo          Code = 2000
	RenderFailed        Code = 2001
	RenderPanic         Code = 2002
	RenderHookOrder     Code = 2003
	RenderHookCount     Code = 2004
	RenderDuplicateKey  Code = 2005
	RenderMixedKeys     Code = 2006
	RenderStaleOutput   Code = 2007
	RenderUnhandled     Code = 2008
	RenderEffectPanic   Code = 2009
	RenderHandlerPanic  Code = 2010
	RenderContextAbsent Code = 2011

	// tasks
	TaskInfo     Code = 3000
	TaskFailed   Code = 3001
	TaskPanicked Code = 3002

	// renderer contract
	RendererInfo          Code = 4000
	RendererStaleElement  Code = 4001
	RendererContract      Code = 4002
	RendererUnknownTarget Code = 4003

	// runtime
	RuntimeInfo       Code = 5000
	RuntimeUpdateLoop Code = 5001
	RuntimeWrongOwner Code = 5002
	RuntimeTimings    Code = 5003
)

var (
	codeDescription = map[Code]string{
		UnknownCode:           "Unknown error",
		TplInfo:               "Template information",
		TplInvalidShape:       "Malformed template",
		TplNameConflict:       "Template name reused for a different shape",
		TplSlotMismatch:       "Render output does not match its template slots",
		TplUnknownForRef:      "Unknown template id",
		RenderInfo:            "Render information",
		RenderFailed:          "Component returned an error",
		RenderPanic:           "Component panicked while rendering",
		RenderHookOrder:       "Hooks called in a different order than the first render",
		RenderHookCount:       "Hook count differs from the first render",
		RenderDuplicateKey:    "Duplicate key among keyed siblings",
		RenderMixedKeys:       "Keyed and unkeyed siblings mixed in one list",
		RenderStaleOutput:     "Render output from a superseded generation reused",
		RenderUnhandled:       "Error not caught by any error boundary",
		RenderEffectPanic:     "Effect panicked",
		RenderHandlerPanic:    "Event handler panicked",
		RenderContextAbsent:   "Context value not provided by any ancestor",
		TaskInfo:              "Task information",
		TaskFailed:            "Task returned an error",
		TaskPanicked:          "Task panicked",
		RendererInfo:          "Renderer information",
		RendererStaleElement:  "Renderer used a stale element id",
		RendererContract:      "Renderer reported a contract violation",
		RendererUnknownTarget: "Event targeted an unknown element",
		RuntimeInfo:           "Runtime information",
		RuntimeUpdateLoop:     "Update loop did not converge",
		RuntimeWrongOwner:     "Runtime used from a goroutine that does not own it",
		RuntimeTimings:        "Phase timings",
	}
)

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("TPL%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("RND%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TSK%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("BCK%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("RT%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
