// Package executor runs the external build tool for one project after its
// fragment has been written.
package executor

import "context"

// Goal is what the build tool is asked to do.
type Goal int

// Goals.
const (
	GoalBuild Goal = iota
	GoalClean
	GoalRebuild
)

// ParseGoal maps a base action name to a Goal.
func ParseGoal(action string) (Goal, bool) {
	switch action {
	case "build":
		return GoalBuild, true
	case "clean":
		return GoalClean, true
	case "rebuild":
		return GoalRebuild, true
	}
	return 0, false
}

func (g Goal) String() string {
	switch g {
	case GoalClean:
		return "clean"
	case GoalRebuild:
		return "rebuild"
	}
	return "build"
}

// Request describes one project invocation.
type Request struct {
	Project string
	// SrcDir is the working directory of the build tool.
	SrcDir    string
	SolDir    string
	BuildPath string
	ObjPath   string
	// MakeCore is the absolute path of the shared makefile core.
	MakeCore string
	Threads  int
	Goal     Goal
	Verbose  bool
}

// Executor is responsible for running the build tool for one project.
type Executor interface {
	Execute(ctx context.Context, req Request) error
}
