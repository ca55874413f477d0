package dissyslab

/*
   Copyright 2018 Bruno Moura <brunotm@gmail.com>

   Licensed under the Apache License, Version 2.0 (the "License");
   you may not use this file except in compliance with the License.
   You may obtain a copy of the License at

       http://www.apache.org/licenses/LICENSE-2.0

   Unless required by applicable law or agreed to in writing, software
   distributed under the License is distributed on an "AS IS" BASIS,
   WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
   See the License for the specific language governing permissions and
   limitations under the License.
*/

import (
	"fmt"
	"sync"

	"github.com/dissyslab/core/log"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// blockContext is the BlockContext handed to a leaf's Startup/Shutdown hooks.
type blockContext struct {
	name   string
	logger Logger
	config Config
}

func (c *blockContext) Name() (name string)  { return c.name }
func (c *blockContext) Logger() (l Logger)   { return c.logger }
func (c *blockContext) Config() (cfg Config) { return c.config }

// Execute compiles spec and runs the resulting plan to completion, blocking
// until every worker has terminated. cfg supplies the configuration tree
// threaded through each block's BlockContext.Config(), keyed by the block's
// fully-qualified path; pass NewConfig(nil) when no block reads its own
// configuration.
func Execute(spec *GraphDef, cfg Config) (err error) {
	plan, err := Compile(spec)
	if err != nil {
		return err
	}
	return RunPlan(plan, cfg)
}

// RunPlan runs an already-compiled Plan: every leaf's Startup hook (in plan
// order), then one concurrent worker per leaf, then every leaf's Shutdown
// hook (in reverse plan order) once every worker has returned. It implements
// the Scheduler of spec §4.5: no run is started if a Startup hook fails; a
// worker failure triggers failure termination (every channel's abort signal
// fires, causing peers to drain) and RunPlan still runs every Shutdown.
//
// A Plan's abort signal is single-use: compile spec again with Compile to get
// an independent Plan for a second run.
func RunPlan(plan *Plan, cfg Config) (err error) {
	runID := uuid.New().String()
	planLogger := log.New("plan", plan.RootName, "run_id", runID)

	contexts := make([]*blockContext, len(plan.Blocks))
	for i, b := range plan.Blocks {
		contexts[i] = &blockContext{
			name:   b.Name,
			logger: log.New("plan", plan.RootName, "run_id", runID, "block", b.Name),
			config: cfg.Get(b.Name),
		}
	}

	for i, b := range plan.Blocks {
		if b.Def.Startup == nil {
			continue
		}
		planLogger.Debugw("block startup", "block", b.Name)
		if hookErr := b.Def.Startup(contexts[i]); hookErr != nil {
			planLogger.Errorw("block startup failed", "block", b.Name, "error", hookErr)
			return &ExecError{Primary: multierror.Append(nil, fmt.Errorf("%w: %s: %v", ErrStartupFailed, b.Name, hookErr))}
		}
	}

	var (
		mu       sync.Mutex
		primary  *multierror.Error
		abortErr sync.Once
	)

	abort := func(cause error) {
		abortErr.Do(func() { close(plan.abortCh) })
		mu.Lock()
		primary = multierror.Append(primary, cause)
		mu.Unlock()
	}

	g := &errgroup.Group{}
	for i, b := range plan.Blocks {
		b, bc := b, contexts[i]
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					abort(fmt.Errorf("%s: panic: %v", b.Name, r))
				}
			}()
			bc.logger.Debugw("block run started", "role", b.Role.String())
			if runErr := runWorker(b, plan.abortCh); runErr != nil {
				bc.logger.Errorw("block run failed", "error", runErr)
				abort(fmt.Errorf("%s: %w", b.Name, runErr))
			}
			return nil
		})
	}
	_ = g.Wait()

	var secondary *multierror.Error
	for i := len(plan.Blocks) - 1; i >= 0; i-- {
		b := plan.Blocks[i]
		if b.Def.Shutdown == nil {
			continue
		}
		planLogger.Debugw("block shutdown", "block", b.Name)
		if hookErr := b.Def.Shutdown(contexts[i]); hookErr != nil {
			planLogger.Errorw("block shutdown failed", "block", b.Name, "error", hookErr)
			secondary = multierror.Append(secondary, fmt.Errorf("%s: %v", b.Name, hookErr))
		}
	}

	exec := &ExecError{Primary: primary, Secondary: secondary}
	if exec.hasFailures() {
		return exec
	}
	return nil
}
