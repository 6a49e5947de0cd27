package hxpage

import (
	"context"
	"sync"
)

type controlState int

const (
	controlUnset controlState = iota
	controlSkip
	controlRun
)

// serverHookControl lets an isomorphic onBeforeRender hook decide whether
// the server onBeforeRender hook runs. Only one decision is allowed.
type serverHookControl struct {
	r           *Renderer
	pc          *pageContext
	isoFilePath string
	bookkeeping *hookBookkeeping

	mu        sync.Mutex
	state     controlState
	done      bool
	misuseErr error
	serverErr error
}

// hookBookkeeping counts the onBeforeRender hooks fired per layer.
type hookBookkeeping struct {
	fired   [numLayers]int
	skipped [numLayers]bool
}

func (c *serverHookControl) decide(state controlState, method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return c.misuse(usageErrorf("pageContext.%s() was called after the `%s()` hook exported by %s returned",
			method, ExportOnBeforeRender, c.isoFilePath))
	}
	switch c.state {
	case controlSkip:
		return c.misuse(usageErrorf("pageContext.%s() was called after pageContext.SkipOnBeforeRenderServerHooks() in the `%s()` hook exported by %s; call only one of them, once",
			method, ExportOnBeforeRender, c.isoFilePath))
	case controlRun:
		return c.misuse(usageErrorf("pageContext.%s() was called after pageContext.RunOnBeforeRenderServerHooks() in the `%s()` hook exported by %s; call only one of them, once",
			method, ExportOnBeforeRender, c.isoFilePath))
	}
	c.state = state
	return nil
}

// misuse records the first misuse so it surfaces even when the hook
// ignores the returned error.
func (c *serverHookControl) misuse(err *UsageError) error {
	if c.misuseErr == nil {
		c.misuseErr = err
	}
	return err
}

func noControl(method string) error {
	return usageErrorf("pageContext.%s() can only be called inside an `%s()` hook exported by a .page file", method, ExportOnBeforeRender)
}

// SkipOnBeforeRenderServerHooks prevents the server onBeforeRender hook
// from running. Only callable from an isomorphic onBeforeRender hook, and
// at most once.
func (p *PageContext) SkipOnBeforeRenderServerHooks() error {
	const method = "SkipOnBeforeRenderServerHooks"
	if p.control == nil {
		return noControl(method)
	}
	if err := p.control.decide(controlSkip, method); err != nil {
		return err
	}
	p.control.bookkeeping.skipped[layerServer] = true
	return nil
}

// RunOnBeforeRenderServerHooks runs the server onBeforeRender hook now and
// merges its result into the page context. Only callable from an
// isomorphic onBeforeRender hook, and at most once.
func (p *PageContext) RunOnBeforeRenderServerHooks(ctx context.Context) error {
	const method = "RunOnBeforeRenderServerHooks"
	c := p.control
	if c == nil {
		return noControl(method)
	}
	if err := c.decide(controlRun, method); err != nil {
		return err
	}
	if err := c.r.runServerOnBeforeRender(ctx, c.pc, c.bookkeeping); err != nil {
		c.mu.Lock()
		c.serverErr = err
		c.mu.Unlock()
		return err
	}
	return nil
}

// executeOnBeforeRenderHooks runs the onBeforeRender hooks of the page.
func (r *Renderer) executeOnBeforeRenderHooks(ctx context.Context, pc *pageContext) error {
	if pc.providedByPrerenderHook {
		return nil
	}
	files := pc.files
	bk := &hookBookkeeping{}

	iso := files.hookFor(layerIsomorphic, hasOnBeforeRender)
	if iso != nil && !pc.isPageContextRequest {
		c := &serverHookControl{r: r, pc: pc, isoFilePath: iso.filePath, bookkeeping: bk}
		view := &PageContext{b: pc, control: c}
		var fields map[string]any
		err := r.callHook(ctx, ExportOnBeforeRender, iso.filePath, func(ctx context.Context) error {
			var err error
			fields, err = iso.onBeforeRender(ctx, view)
			return err
		})

		c.mu.Lock()
		c.done = true
		state, misuseErr, serverErr := c.state, c.misuseErr, c.serverErr
		c.mu.Unlock()
		switch {
		case misuseErr != nil:
			return misuseErr
		case serverErr != nil:
			return serverErr
		case err != nil:
			return err
		}
		bk.fired[layerIsomorphic]++
		if err := pc.merge(fields, ExportOnBeforeRender, iso.filePath); err != nil {
			return err
		}
		if state == controlUnset {
			if err := r.runServerOnBeforeRender(ctx, pc, bk); err != nil {
				return err
			}
		}
	} else if err := r.runServerOnBeforeRender(ctx, pc, bk); err != nil {
		return err
	}

	return checkBookkeeping(files, bk, pc.isPageContextRequest)
}

func (r *Renderer) runServerOnBeforeRender(ctx context.Context, pc *pageContext, bk *hookBookkeeping) error {
	hf := pc.files.hookFor(layerServer, hasOnBeforeRender)
	if hf == nil {
		return nil
	}
	var fields map[string]any
	err := r.callHook(ctx, ExportOnBeforeRender, hf.filePath, func(ctx context.Context) error {
		var err error
		fields, err = hf.onBeforeRender(ctx, pc.view())
		return err
	})
	if err != nil {
		return err
	}
	bk.fired[layerServer]++
	return pc.merge(fields, ExportOnBeforeRender, hf.filePath)
}

// checkBookkeeping verifies that exactly one onBeforeRender hook fired in
// every layer that defines one, unless the layer was skipped.
func checkBookkeeping(files *pageFiles, bk *hookBookkeeping, isPageContextRequest bool) error {
	for l := layerIsomorphic; l < numLayers; l++ {
		candidates := files.candidates(l, hasOnBeforeRender)
		if len(candidates) == 0 || bk.skipped[l] {
			continue
		}
		if l == layerIsomorphic && isPageContextRequest {
			continue
		}
		if bk.fired[l] != 1 {
			return usageErrorf("expected exactly one %s `%s()` hook to run, %d ran; candidates: %s",
				l, ExportOnBeforeRender, bk.fired[l], stringifyStringArray(candidates))
		}
	}
	return nil
}
