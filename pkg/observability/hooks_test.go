package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	p := NoopPipelineHooks{}
	p.OnIndicatorStart(ctx, "NPP", 31)
	p.OnFrameRendered(ctx, "NPP", 2010)
	p.OnEncodeStart(ctx, "NPP", 32)
	p.OnEncodeComplete(ctx, "NPP", "/tmp/NPP.mp4", time.Second, nil)
	p.OnIndicatorComplete(ctx, "NPP", time.Second, nil)

	w := NoopWorkspaceHooks{}
	w.OnPurge(ctx, []string{"*.tif"}, 12)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Workspace().(NoopWorkspaceHooks); !ok {
		t.Error("Workspace() should return NoopWorkspaceHooks by default")
	}

	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customWorkspace := &testWorkspaceHooks{}
	SetWorkspaceHooks(customWorkspace)
	if Workspace() != customWorkspace {
		t.Error("SetWorkspaceHooks should set custom hooks")
	}

	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
	if _, ok := Workspace().(NoopWorkspaceHooks); !ok {
		t.Error("Reset() should restore NoopWorkspaceHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

func TestCustomHooksReceiveEvents(t *testing.T) {
	Reset()
	defer Reset()

	h := &testPipelineHooks{}
	SetPipelineHooks(h)

	ctx := context.Background()
	Pipeline().OnIndicatorStart(ctx, "NEP", 3)
	for _, y := range []int{2001, 2002, 2003} {
		Pipeline().OnFrameRendered(ctx, "NEP", y)
	}

	if h.started != 1 {
		t.Errorf("started = %d, want 1", h.started)
	}
	if h.frames != 3 {
		t.Errorf("frames = %d, want 3", h.frames)
	}
}

type testPipelineHooks struct {
	NoopPipelineHooks
	started int
	frames  int
}

func (h *testPipelineHooks) OnIndicatorStart(context.Context, string, int) { h.started++ }
func (h *testPipelineHooks) OnFrameRendered(context.Context, string, int)  { h.frames++ }

type testWorkspaceHooks struct {
	NoopWorkspaceHooks
}
