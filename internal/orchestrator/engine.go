package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/config"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/constraint"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/control"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/monitor"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/notify"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/runninglock"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/sensor"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/standby"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/timeprovider"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/timer"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/internal/worker"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/consts"
	serrors "github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/errors"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/logger"
	"github.com/eclipse-oniro-mirrors/resourceschedule-device-standby-sub001/pkg/protocol"
)

const shutdownTimeout = 5 * time.Second

// Engine wires the standby machine to the platform and runs it.
type Engine struct {
	cfg    *protocol.Config
	clock  clockwork.Clock
	params *config.Params
	log    logger.Logger

	worker  *worker.Worker
	sched   *timer.Scheduler
	hub     *sensor.Hub
	iio     *sensor.IIOSource
	lock    *runninglock.Lock
	coord   *constraint.Coordinator
	mgr     *standby.Manager
	charge  constraint.ChargeSource
	notify  *notify.Async
	closers []func()

	control  *control.Server
	reporter gocron.Scheduler
	interval time.Duration
	metrics  *monitor.Server
	cancel   context.CancelFunc
}

// NewEngine loads the parameter store and builds every component. Nothing runs until Start.
func NewEngine(cfg *protocol.Config, clock clockwork.Clock) (*Engine, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	e := &Engine{cfg: cfg, clock: clock, log: logger.Component("engine")}

	params, err := loadParams(cfg.Standby.ParamsFile)
	if err != nil {
		return nil, err
	}
	e.params = params

	e.interval = consts.DefaultReportInterval
	if s := cfg.Observability.ReportInterval; s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, serrors.New(serrors.ErrCodeConfigInvalid, "NewEngine", "bad report_interval "+s, err)
		}
		e.interval = d
	}

	queue := cfg.Standby.Worker.QueueSize
	if queue <= 0 {
		queue = consts.DefaultWorkerQueue
	}
	e.worker = worker.New(queue)
	e.sched = timer.NewScheduler(timer.NewClockService(clock), clock, e.worker)
	e.hub = sensor.NewHub(0)
	if dev := cfg.Standby.Sensors.IIODevice; dev != "" {
		e.iio = sensor.NewIIOSource(dev, cfg.Standby.Sensors.Scale, e.hub, clock)
	}

	var backend runninglock.Backend
	if pl := cfg.Standby.PowerLock; pl.Enabled {
		backend = runninglock.NewSysfsBackend(pl.Name, pl.SysfsDir)
	}
	e.lock = runninglock.New(backend)

	if dir := cfg.Standby.Charge.SupplyDir; dir != "" {
		e.charge = constraint.NewSysfsChargeSource(dir)
	} else {
		e.charge = constraint.StaticChargeSource(false)
	}

	e.notify = notify.NewAsync(0, e.buildSinks()...)
	e.coord = constraint.NewCoordinator(e.worker)
	e.mgr = standby.NewManager(standby.Options{
		Params:      params,
		Scheduler:   e.sched,
		Coordinator: e.coord,
		Lock:        e.lock,
		Times:       timesFrom(params),
		Sink:        e.notify,
	})
	e.control = control.NewServer(cfg.Control.SocketPath, e)
	return e, nil
}

func loadParams(path string) (*config.Params, error) {
	if path == "" {
		logger.Log.Warn("No parameter store configured, using defaults")
		return config.Empty(), nil
	}
	return config.Load(path)
}

func timesFrom(p *config.Params) *timeprovider.Provider {
	return timeprovider.New(
		timeprovider.ClockTime{
			Hour:   p.GetInt(consts.ParamNightEntranceHour, consts.DefaultNightEntranceHour),
			Minute: p.GetInt(consts.ParamNightEntranceMin, consts.DefaultNightEntranceMin),
		},
		timeprovider.ClockTime{
			Hour:   p.GetInt(consts.ParamDayEntranceHour, consts.DefaultDayEntranceHour),
			Minute: p.GetInt(consts.ParamDayEntranceMin, consts.DefaultDayEntranceMin),
		},
	)
}

// buildSinks connects the configured collaborators. An unreachable broker is logged and skipped.
func (e *Engine) buildSinks() []notify.Sink {
	var sinks []notify.Sink
	n := e.cfg.Notify
	if n.Log {
		sinks = append(sinks, notify.NewLogSink())
	}
	if n.Redis.Addr != "" {
		rs := notify.NewRedisSink(n.Redis)
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := rs.Connect(ctx)
		cancel()
		if err != nil {
			e.log.Warn("Redis sink disabled", "err", err)
			rs.Close()
		} else {
			sinks = append(sinks, rs)
			e.closers = append(e.closers, func() { rs.Close() })
		}
	}
	if n.NATS.URL != "" {
		ns, err := notify.NewNATSSink(n.NATS)
		if err != nil {
			e.log.Warn("NATS sink disabled", "err", err)
		} else {
			sinks = append(sinks, ns)
			e.closers = append(e.closers, ns.Close)
		}
	}
	return sinks
}

// Start brings the machine up in Working and begins serving.
func (e *Engine) Start(ctx context.Context) error {
	ctx, e.cancel = context.WithCancel(ctx)

	e.worker.Start(ctx)
	e.hub.Start(ctx)
	e.notify.Start(ctx)
	if e.iio != nil {
		go e.iio.Run(ctx, consts.DefaultAccelSamplingInterval)
	}

	var initErr error
	err := e.worker.Call(ctx, func() {
		initErr = constraint.RegisterDefaults(e.coord, constraint.Deps{
			Params:    e.params,
			Sensors:   e.hub,
			Scheduler: e.sched,
			Poster:    e.worker,
			Charge:    e.charge,
		})
		if initErr != nil {
			return
		}
		initErr = e.mgr.Init()
	})
	if err == nil {
		err = initErr
	}
	if err != nil {
		e.Shutdown()
		return err
	}

	if err := e.control.Start(ctx); err != nil {
		e.Shutdown()
		return err
	}
	if err := e.startReporter(); err != nil {
		e.Shutdown()
		return err
	}
	e.metrics = monitor.InitMetrics(e.cfg.Observability.MetricsPort)

	e.log.Info("Standby engine started", "service", e.cfg.Service.Name, "state", consts.StateWorking)
	return nil
}

func (e *Engine) startReporter() error {
	s, err := gocron.NewScheduler(gocron.WithClock(e.clock))
	if err != nil {
		return serrors.New(serrors.ErrCodeUnknown, "startReporter", "failed to create reporter", err)
	}
	_, err = s.NewJob(
		gocron.DurationJob(e.interval),
		gocron.NewTask(e.ReportStatus),
		gocron.WithName("status-report"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		s.Shutdown()
		return serrors.New(serrors.ErrCodeUnknown, "startReporter", "failed to schedule status report", err)
	}
	s.Start()
	e.reporter = s
	return nil
}

// ReportStatus dispatches a status notification from the worker.
func (e *Engine) ReportStatus() {
	e.worker.Post(func() {
		e.notify.DispatchEvent(e.mgr.StatusMessage())
	})
}

// Dump returns the manager snapshot.
func (e *Engine) Dump(ctx context.Context) (protocol.Snapshot, error) {
	var snap protocol.Snapshot
	err := e.worker.Call(ctx, func() { snap = e.mgr.Snapshot() })
	return snap, err
}

// Event injects a system event into the machine.
func (e *Engine) Event(ctx context.Context, ev consts.SystemEvent) error {
	var evErr error
	if err := e.worker.Call(ctx, func() { evErr = e.mgr.HandleSystemEvent(ev) }); err != nil {
		return err
	}
	return evErr
}

// Run starts the engine and blocks until ctx is done or SIGINT/SIGTERM arrives.
// SIGHUP reports the current status immediately.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.Start(ctx); err != nil {
		return err
	}
	defer e.Shutdown()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGHUP:
				e.log.Info("Signal: SIGHUP received. Reporting status.")
				e.ReportStatus()
			default:
				e.log.Info("Signal: Stop received. Shutting down.", "signal", sig.String())
				return nil
			}
		}
	}
}

// Shutdown stops every component. The machine is torn down on the worker before it stops.
func (e *Engine) Shutdown() {
	if e.reporter != nil {
		if err := e.reporter.Shutdown(); err != nil {
			e.log.Warn("Reporter shutdown failed", "err", err)
		}
		e.reporter = nil
	}
	e.control.Close()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.worker.Call(ctx, e.mgr.UnInit); err != nil {
		e.log.Debug("Machine teardown skipped", "err", err)
	}
	e.worker.Stop()
	e.lock.Release()

	e.notify.Close()
	for _, c := range e.closers {
		c()
	}
	e.closers = nil
	if err := e.metrics.Shutdown(ctx); err != nil {
		e.log.Warn("Metrics shutdown failed", "err", err)
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.log.Info("Standby engine stopped")
}

// Personal.AI order the ending
