package session

import "fmt"

// State is the orchestrator's position within a compilation cycle.
type State int

const (
	StateIdle State = iota
	StateDeciding
	StateReparsing
	StateSkippedParse
	StateDependencyCascade
	StateInstantiating
	StateGenerating
	StateRendering
	StateDone
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDeciding:
		return "deciding"
	case StateReparsing:
		return "reparsing"
	case StateSkippedParse:
		return "skipped-parse"
	case StateDependencyCascade:
		return "dependency-cascade"
	case StateInstantiating:
		return "instantiating"
	case StateGenerating:
		return "generating"
	case StateRendering:
		return "rendering"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Action is a user request handled by the session's event loop.
type Action int

const (
	ActionRenderPreview Action = iota
	ActionReloadPreview
	ActionRenderExact
	ActionReloadDocument
	ActionFlushCaches
	ActionDumpTree
	ActionDumpProducts
	ActionDumpAST
)

func (a Action) String() string {
	switch a {
	case ActionRenderPreview:
		return "render-preview"
	case ActionReloadPreview:
		return "reload-preview"
	case ActionRenderExact:
		return "render-exact"
	case ActionReloadDocument:
		return "reload-document"
	case ActionFlushCaches:
		return "flush-caches"
	case ActionDumpTree:
		return "dump-tree"
	case ActionDumpProducts:
		return "dump-products"
	case ActionDumpAST:
		return "dump-ast"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}
