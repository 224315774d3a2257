// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package reactor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pierrej/lightboard-core/internal/console"
	"github.com/pierrej/lightboard-core/internal/metrics"
	"github.com/pierrej/lightboard-core/internal/protocol"
	"github.com/pierrej/lightboard-core/internal/showlibrary"
)

// Config carries the reactor's scheduling intervals and the show library
// root.
type Config struct {
	UpdateInterval   time.Duration
	RenderInterval   time.Duration
	AutosaveInterval time.Duration // 0 = disabled
	LibraryRoot      string
}

// Reactor is the single-threaded owner of all show state. It alternates
// fixed-interval updates, rate-limited DMX renders, optional autosaves
// and blocking command intake, and never lets an error escape as a panic.
type Reactor struct {
	logger *slog.Logger
	cfg    Config

	commands   <-chan protocol.CommandEnvelope
	responses  chan<- protocol.ResponseEnvelope
	routerDone <-chan struct{}

	ports console.PortFactory
	cons  *console.Console

	lib       *showlibrary.Library
	cache     *showlibrary.Cache
	showName  string
	sessionID string

	sched   *Schedule
	now     func() time.Time
	running bool
}

// New constructs a reactor around an already-initialized console and show
// name. routerDone, when non-nil, reports that the response sink is gone;
// a send racing that signal triggers the abort path (autosave, then exit).
func New(
	logger *slog.Logger,
	cfg Config,
	ports console.PortFactory,
	cons *console.Console,
	showName string,
	commands <-chan protocol.CommandEnvelope,
	responses chan<- protocol.ResponseEnvelope,
	routerDone <-chan struct{},
) *Reactor {
	return &Reactor{
		logger:     logger,
		cfg:        cfg,
		commands:   commands,
		responses:  responses,
		routerDone: routerDone,
		ports:      ports,
		cons:       cons,
		lib:        showlibrary.New(cfg.LibraryRoot, showName),
		showName:   showName,
		sessionID:  showlibrary.NewSessionID(),
		now:        time.Now,
	}
}

// Console exposes the current show state (for bridges constructed before
// Run starts).
func (r *Reactor) Console() *console.Console { return r.cons }

// Run executes the event loop until Quit or a fatal inconsistency. It
// owns all show state for its whole lifetime.
func (r *Reactor) Run() {
	r.cache = showlibrary.NewCache(r.logger, r.lib)
	defer func() {
		if r.cache != nil {
			r.cache.Close()
		}
	}()

	r.sched = NewSchedule(r.now(), r.cfg.UpdateInterval, r.cfg.RenderInterval, r.cfg.AutosaveInterval)
	r.running = true

	for r.running {
		ev := r.sched.Next(r.now())
		switch ev.Kind {
		case EventUpdate:
			metrics.UpdatesTotal.Inc()
			r.emitAll(r.cons.Update(ev.Dt))
		case EventRender:
			start := r.now()
			r.emitAll(r.cons.Render())
			metrics.RenderSeconds.Set(r.now().Sub(start).Seconds())
			metrics.FramesTotal.Inc()
			metrics.SetOutputEnabled(r.cons.Gate().Enabled())
		case EventAutosave:
			if _, err := r.autosave(); err != nil {
				r.logger.Error("reactor: autosave failed", "error", err)
				metrics.ErrorsTotal.WithLabelValues("autosave").Inc()
			}
		case EventIdle:
			r.idle(ev.Idle)
		}
	}
}

// idle blocks on command intake for at most d; a received command
// preempts the idle.
func (r *Reactor) idle(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case env, ok := <-r.commands:
		if !ok {
			r.logger.Error("reactor: command channel closed, shutting down")
			r.shutdown()
			return
		}
		r.handleCommand(env)
	case <-timer.C:
	}
}

// emit sends one response, detecting a departed sink. Returns false on
// the abort path.
func (r *Reactor) emit(env protocol.ResponseEnvelope) bool {
	select {
	case r.responses <- env:
		return true
	case <-r.routerDone:
		r.logger.Error("reactor: response sink gone, aborting")
		if _, err := r.autosave(); err != nil {
			r.logger.Error("reactor: abort autosave failed", "error", err)
		}
		r.running = false
		return false
	}
}

func (r *Reactor) emitAll(envs []protocol.ResponseEnvelope) {
	for _, env := range envs {
		if !r.emit(env) {
			return
		}
	}
}

func (r *Reactor) emitError(origin protocol.ClientData, err error) {
	metrics.ErrorsTotal.WithLabelValues("command").Inc()
	cd := origin
	cd.Filter = protocol.FilterExclusive
	r.emit(protocol.ResponseEnvelope{ClientData: &cd, Payload: protocol.ErrorResponse(err)})
}

func (r *Reactor) handleCommand(env protocol.CommandEnvelope) {
	cmd := env.Payload
	origin := env.ClientData
	metrics.CommandsTotal.WithLabelValues(cmd.Verb).Inc()

	switch cmd.Verb {
	case "Console":
		r.emitAll(r.cons.Dispatch(cmd.Console, origin))

	case "Save":
		if _, err := r.save(); err != nil {
			r.emitError(origin, err)
			return
		}
		r.emitTo(origin, protocol.OkResponse())

	case "SaveAs":
		r.saveAs(cmd.Name, origin)

	case "NewShow":
		r.newShow(cmd.Name, origin)

	case "Load":
		r.load(cmd.LoadReq, origin)

	case "Rename":
		newLib, err := r.lib.Rename(cmd.Name)
		if err != nil {
			r.emitError(origin, err)
			return
		}
		r.swapLibrary(newLib, cmd.Name)
		r.emitTo(origin, protocol.OkResponse())

	case "SavedShows":
		names, err := showlibrary.ShowNames(r.cfg.LibraryRoot)
		if err != nil {
			r.emitError(origin, err)
			return
		}
		r.emitTo(origin, protocol.Response{Type: "SavedShows", Names: names})

	case "AvailableSaves":
		saves, err := r.cache.Saves()
		if err != nil {
			r.emitError(origin, err)
			return
		}
		autosaves, err := r.cache.Autosaves()
		if err != nil {
			r.emitError(origin, err)
			return
		}
		var names []string
		for _, f := range saves {
			names = append(names, f.Name)
		}
		for _, f := range autosaves {
			names = append(names, "autosave/"+f.Name)
		}
		r.emitTo(origin, protocol.Response{Type: "AvailableSaves", Names: names})

	case "Quit":
		r.shutdown()

	default:
		r.emitError(origin, fmt.Errorf("reactor: unknown command %q", cmd.Verb))
	}
}

func (r *Reactor) emitTo(origin protocol.ClientData, resp protocol.Response) {
	cd := origin
	cd.Filter = protocol.FilterExclusive
	r.emit(protocol.ResponseEnvelope{ClientData: &cd, Payload: resp})
}

func (r *Reactor) save() (string, error) {
	snap, err := r.cons.Snapshot(r.sessionID, r.showName)
	if err != nil {
		return "", err
	}
	return r.lib.Save(r.now(), snap)
}

func (r *Reactor) autosave() (string, error) {
	snap, err := r.cons.Snapshot(r.sessionID, r.showName)
	if err != nil {
		return "", err
	}
	path, err := r.lib.Autosave(r.now(), snap)
	if err == nil {
		metrics.AutosavesTotal.Inc()
	}
	return path, err
}

// persistCurrent is the pre-swap safety net shared by NewShow, Load and
// SaveAs: autosave plus full save of the running state. Any failure
// cancels the swap.
func (r *Reactor) persistCurrent() error {
	if _, err := r.autosave(); err != nil {
		return err
	}
	if _, err := r.save(); err != nil {
		return err
	}
	return nil
}

func (r *Reactor) swapLibrary(lib *showlibrary.Library, showName string) {
	if r.cache != nil {
		r.cache.Close()
	}
	r.lib = lib
	r.showName = showName
	r.cache = showlibrary.NewCache(r.logger, lib)
}

// broadcastFullState pushes every read model to all clients after a state
// swap.
func (r *Reactor) broadcastFullState() {
	for _, resp := range []protocol.Response{
		r.cons.PatchStateResponse(),
		r.cons.ClockStateResponse(),
		r.cons.WiggleStateResponse(),
		r.cons.OutputStateResponse(),
	} {
		if !r.emit(protocol.ResponseEnvelope{Payload: resp}) {
			return
		}
	}
}

func (r *Reactor) newShow(name string, origin protocol.ClientData) {
	if err := r.persistCurrent(); err != nil {
		r.emitError(origin, err)
		return
	}
	lib := showlibrary.New(r.cfg.LibraryRoot, name)
	if err := lib.EnsureDirs(); err != nil {
		r.emitError(origin, err)
		return
	}
	r.cons = console.New(r.logger, r.ports, r.cons.Gate())
	r.sessionID = showlibrary.NewSessionID()
	r.swapLibrary(lib, name)
	r.broadcastFullState()
}

func (r *Reactor) load(req *protocol.LoadRequest, origin protocol.ClientData) {
	if req == nil {
		r.emitError(origin, fmt.Errorf("reactor: load without request"))
		return
	}
	showName := req.ShowName
	if showName == "" {
		showName = r.showName
	}
	lib := showlibrary.New(r.cfg.LibraryRoot, showName)

	var snap showlibrary.Snapshot
	var err error
	switch req.Kind {
	case protocol.LoadLatest:
		snap, err = lib.LoadLatest()
	case protocol.LoadExact:
		snap, err = lib.LoadExact(req.Exact)
	case protocol.LoadLatestAutosave:
		snap, err = lib.LoadLatestAutosave()
	case protocol.LoadExactAutosave:
		snap, err = lib.LoadExactAutosave(req.Exact)
	default:
		err = fmt.Errorf("reactor: unknown load spec %q", req.Kind)
	}
	if err != nil {
		r.emitError(origin, err)
		return
	}

	if err := r.persistCurrent(); err != nil {
		r.emitError(origin, err)
		return
	}

	cons, err := console.Restore(r.logger, r.ports, r.cons.Gate(), snap)
	if err != nil {
		r.emitError(origin, err)
		return
	}

	r.cons = cons
	r.sessionID = snap.SessionID
	if r.sessionID == "" {
		r.sessionID = showlibrary.NewSessionID()
	}
	r.swapLibrary(lib, showName)
	r.broadcastFullState()
}

func (r *Reactor) saveAs(name string, origin protocol.ClientData) {
	if err := r.persistCurrent(); err != nil {
		r.emitError(origin, err)
		return
	}
	lib := showlibrary.New(r.cfg.LibraryRoot, name)
	if err := lib.EnsureDirs(); err != nil {
		r.emitError(origin, err)
		return
	}
	snap, err := r.cons.Snapshot(r.sessionID, name)
	if err != nil {
		r.emitError(origin, err)
		return
	}
	if _, err := lib.Save(r.now(), snap); err != nil {
		r.emitError(origin, err)
		return
	}
	r.swapLibrary(lib, name)
	r.emitTo(origin, protocol.OkResponse())
}

// shutdown drains cleanly: autosave, broadcast Quit, stop the loop.
func (r *Reactor) shutdown() {
	if _, err := r.autosave(); err != nil {
		r.logger.Error("reactor: shutdown autosave failed", "error", err)
	}
	r.emit(protocol.ResponseEnvelope{Payload: protocol.Response{Type: "Quit"}})
	r.running = false
}
