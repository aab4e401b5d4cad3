package main

import (
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/logger"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/common/sys"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/config"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/motion"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/output"
	"github.com/Davec6505/Pic32mzCNC-V2-sub004/status"
)

// openSwitches is the no-switch environment of a bench run: limit
// inputs never assert, so homing is unavailable but jogging works.
type openSwitches struct{}

func (openSwitches) LimitTriggered(int) bool { return false }

func main() {
	cfgPath := flag.String("config", "", "settings file (.toml/.yaml), defaults built in")
	device := flag.String("device", "sim", "pulse link device path, or 'sim'")
	baud := flag.Int("baud", 250000, "pulse link baud rate")
	logfile := flag.String("log", "", "logfile path; console only when empty")
	flag.Parse()

	if *logfile != "" {
		logger.InitLogger(logger.InfoLevel, *logfile, true, 10, 3, 7)
	} else {
		logger.InitConsole(logger.InfoLevel)
	}
	defer logger.Sync()
	logger.Debugf("main thread %d running", sys.GetGID())

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			logger.Fatalf("settings: %v", err)
		}
		cfg = loaded
	}

	var port motion.StepOutputPort
	if *device == "sim" {
		port = output.NewSimPort()
	} else {
		sp, err := output.OpenSerial(*device, *baud)
		if err != nil {
			logger.Fatalf("pulse link: %v", err)
		}
		defer sp.Close()
		port = sp
	}

	engine := motion.NewMotionEngine(cfg, port, openSwitches{}, motion.NopHooks{})
	if err := port.Enable(); err != nil {
		logger.Fatalf("enable pulse output: %v", err)
	}
	defer port.Disable()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Duration(cfg.TickPeriod * float64(time.Second)))
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				engine.Tick()
			}
		}
	}()

	submitDemoProgram(engine)

	report := time.NewTicker(500 * time.Millisecond)
	defer report.Stop()
	for {
		select {
		case <-stop:
			logger.Warnf("interrupt, emergency stop")
			engine.EmergencyStop()
			time.Sleep(10 * time.Millisecond)
			close(done)
			return
		case <-report.C:
			line, err := status.Render(engine.Snapshot())
			if err != nil {
				logger.Errorf("status render: %v", err)
				continue
			}
			logger.Infof("%s", line)
			if engine.GetMotionState() == motion.StateIdle && engine.GetBufferOccupancy() == 0 {
				close(done)
				return
			}
		}
	}
}

// submitDemoProgram traces a small square with one arc corner.
func submitDemoProgram(engine *motion.MotionEngine) {
	moves := []motion.MoveRequest{
		{Type: motion.MoveRapid, Target: motion.Coord{10, 10, 5, 0}},
		{Type: motion.MoveLinear, FeedRate: 40, Target: motion.Coord{60, 10, 5, 0}},
		{Type: motion.MoveLinear, FeedRate: 40, Target: motion.Coord{60, 50, 5, 0}},
		{Type: motion.MoveArcCCW, FeedRate: 25, Target: motion.Coord{50, 60, 5, 0},
			CenterOffset: &[2]float64{-10, 0}},
		{Type: motion.MoveLinear, FeedRate: 40, Target: motion.Coord{10, 60, 5, 0}},
		{Type: motion.MoveLinear, FeedRate: 40, Target: motion.Coord{10, 10, 5, 0}},
	}
	for i, req := range moves {
		// A full buffer is transient; back off while the executor
		// drains it.
		for {
			err := engine.SubmitMove(req)
			if err == nil {
				break
			}
			if errors.Is(err, motion.ErrCapacity) {
				time.Sleep(20 * time.Millisecond)
				continue
			}
			logger.Errorf("demo move %d rejected: %v", i, err)
			return
		}
	}
}
