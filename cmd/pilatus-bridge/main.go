// cmd/pilatus-bridge/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tamzrod/pilatus-bridge/internal/buffer"
	"github.com/tamzrod/pilatus-bridge/internal/camserver"
	"github.com/tamzrod/pilatus-bridge/internal/config"
	"github.com/tamzrod/pilatus-bridge/internal/detinfo"
	"github.com/tamzrod/pilatus-bridge/internal/hw"
	"github.com/tamzrod/pilatus-bridge/internal/journal"
	"github.com/tamzrod/pilatus-bridge/internal/logging"
	"github.com/tamzrod/pilatus-bridge/internal/pilatus"
	"github.com/tamzrod/pilatus-bridge/internal/poller"
	"github.com/tamzrod/pilatus-bridge/internal/status"
	"github.com/tamzrod/pilatus-bridge/internal/syncctrl"
	"github.com/tamzrod/pilatus-bridge/internal/writer"
	wmodbus "github.com/tamzrod/pilatus-bridge/internal/writer/modbus"
)

const usage = "usage: pilatus-bridge <config.yaml> [run | status | acquire N | reset soft|hard | send CMD...]"

// bridge is everything built from one config file.
type bridge struct {
	cfg     *config.Config
	cam     *camserver.Client
	det     *pilatus.Interface
	journal *journal.Journal
}

func main() {
	if len(os.Args) < 2 {
		log.Fatal(usage)
	}

	cfgPath := os.Args[1]
	cmd := "run"
	var args []string
	if len(os.Args) > 2 {
		cmd, args = os.Args[2], os.Args[3:]
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := build(cfg)
	if err != nil {
		log.Fatalf("bridge build failed: %v", err)
	}
	defer b.close()

	if err := b.cam.Connect(ctx); err != nil {
		log.Fatalf("camserver connect failed (%s): %v", b.cam.Config().Address(), err)
	}

	switch cmd {
	case "run":
		err = b.run(ctx)
	case "status":
		err = b.printStatus()
	case "acquire":
		err = b.acquire(ctx, args)
	case "reset":
		err = b.reset(ctx, args)
	case "send":
		err = b.send(ctx, args)
	default:
		log.Fatal(usage)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

func build(cfg *config.Config) (*bridge, error) {
	bc := cfg.Bridge

	mode, err := detinfo.ParseModeFromString(bc.Descriptor.ParseMode)
	if err != nil {
		return nil, err
	}
	det, err := detinfo.Open(bc.Descriptor.Path, mode)
	if err != nil {
		return nil, err
	}

	cs := bc.Camserver
	cam := camserver.New(camserver.Config{
		Host:           cs.Host,
		Port:           cs.Port,
		Timeout:        time.Duration(cs.TimeoutMs) * time.Millisecond,
		ImagePath:      cs.ImagePath,
		FilePattern:    cs.FilePattern,
		TemperatureMax: cs.TemperatureMax,
		HumidityMax:    cs.HumidityMax,
	})

	buf := buffer.New(cam, det, bc.Buffer.MaxBuffers)
	sc := syncctrl.New(cam, det.ValidRanges())
	b := &bridge{cfg: cfg, cam: cam, det: pilatus.New(cam, det, buf, sc)}

	if bc.Journal != nil {
		j, err := journal.Open(bc.Journal.Path)
		if err != nil {
			return nil, err
		}
		b.journal = j
		b.det.SetRecorder(j)
		cam.SetObserver(j.Observer(func(err error) {
			logging.Logf("journal: %v", err)
		}))
	}
	return b, nil
}

func (b *bridge) close() {
	if err := b.det.Quit(); err != nil {
		log.Printf("quit: %v", err)
	}
	if b.journal != nil {
		if err := b.journal.Close(); err != nil {
			log.Printf("journal close: %v", err)
		}
	}
}

// run polls detector status and publishes it until ctx ends.
func (b *bridge) run(ctx context.Context) error {
	sc := b.cfg.Bridge.Status
	name := b.det.DetectorModel()
	if name == "" {
		name = detinfo.DetectorType
	}

	p, err := poller.Build(name, sc, b.det)
	if err != nil {
		return err
	}

	plan, err := writer.BuildPlan(name, sc, name)
	if err != nil {
		return err
	}
	clients, closeWriters, err := writer.BuildEndpointClient(plan, sc)
	if err != nil {
		return err
	}
	defer closeWriters()

	statusWriter, statusEnabled := writer.NewDeviceStatusWriter(plan, clients)
	tracker := status.NewTracker()

	publish := func(snap status.Snapshot, what string) {
		if !statusEnabled {
			return
		}
		if err := statusWriter.WriteStatus(snap); err != nil {
			log.Printf("status write failed%s (%s): %v", what, name, err)
		}
	}

	// Full block write on start (identity re-assert).
	publish(tracker.Snapshot(), " on start")

	out := make(chan poller.PollResult)
	go p.Run(ctx, out)

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	var lastServer camserver.State = -1
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case res := <-out:
			if res.Server != lastServer {
				log.Printf("camserver %s: %s, %d/%d frames", name, res.Server, res.Frames, res.Requested)
				lastServer = res.Server
			}
			if res.Err != nil {
				logging.Logf("poll %s: %v", name, res.Err)
			}
			if snap, changed := tracker.Apply(res); changed {
				publish(snap, "")
			}

		case <-secTicker.C:
			if snap, changed := tracker.Tick(); changed {
				publish(snap, " on tick")
			}
		}
	}
}

func (b *bridge) printStatus() error {
	st, err := b.det.Status()
	if err != nil {
		return err
	}
	fmt.Printf("model:     %s\n", b.det.DetectorModel())
	fmt.Printf("server:    %s\n", b.cam.Status())
	if msg := b.cam.ErrorMessage(); msg != "" {
		fmt.Printf("error:     %s\n", msg)
	}
	fmt.Printf("detector:  %s\n", st.Det)
	fmt.Printf("acq:       %s\n", st.Acq)
	fmt.Printf("frames:    %d/%d\n", b.det.NbAcquiredFrames(), b.det.NbRequestedFrames())
	fmt.Printf("energy:    %g eV, threshold %d eV, gain %s\n", b.cam.Energy(), b.cam.Threshold(), b.cam.Gain())

	if p := b.cfg.Bridge.Status.Publish; p != nil {
		if err := printPublished(p); err != nil {
			log.Printf("read published block: %v", err)
		}
	}

	if b.journal != nil {
		runs, err := b.journal.Runs()
		if err != nil {
			return err
		}
		for _, r := range runs {
			fmt.Printf("run %s: index %d, %d/%d frames, started %s\n",
				r.ID, r.ImageIndex, r.FramesAcquired, r.FramesRequested, r.Started.Format(time.RFC3339))
		}
	}
	return nil
}

// printPublished reads back the status block a running bridge publishes.
func printPublished(p *config.PublishConfig) error {
	c, err := wmodbus.NewEndpointClient(wmodbus.Config{
		Endpoint: p.Endpoint,
		Timeout:  time.Duration(p.TimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	regs, err := c.ReadRegisters(p.UnitID, p.Slot*status.SlotsPerDevice, status.SlotsPerDevice)
	if err != nil {
		return err
	}
	fmt.Printf("published: health %d, last error %#04x, %ds in error, %d/%d frames\n",
		regs[status.SlotHealthCode], regs[status.SlotLastErrorCode], regs[status.SlotSecondsInError],
		uint32(regs[status.SlotFramesAcquiredHi])<<16|uint32(regs[status.SlotFramesAcquiredLo]),
		uint32(regs[status.SlotFramesRequestedHi])<<16|uint32(regs[status.SlotFramesRequestedLo]))
	return nil
}

// acquire runs one internally triggered sequence of N frames and waits
// until the detector is ready again.
func (b *bridge) acquire(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New(usage)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("frame count %q: %w", args[0], err)
	}

	if err := b.det.Sync().SetNbHwFrames(n); err != nil {
		return err
	}
	if err := b.det.PrepareAcq(ctx); err != nil {
		return err
	}
	if err := b.det.StartAcq(ctx); err != nil {
		return err
	}

	interval := time.Duration(b.cfg.Bridge.Status.IntervalMs) * time.Millisecond
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = b.det.StopAcq(context.Background())
			return ctx.Err()
		case <-t.C:
		}

		st, err := b.det.Status()
		if err != nil {
			return err
		}
		log.Printf("acquire: %s/%s, %d/%d frames", st.Det, st.Acq, b.det.NbAcquiredFrames(), n)
		switch st.Acq {
		case hw.AcqReady:
			return b.det.StopAcq(ctx)
		case hw.AcqFault:
			_ = b.det.StopAcq(ctx)
			return fmt.Errorf("acquisition fault: %s", b.cam.ErrorMessage())
		}
	}
}

func (b *bridge) reset(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New(usage)
	}
	switch args[0] {
	case "soft":
		return b.det.Reset(ctx, hw.SoftReset)
	case "hard":
		return b.det.Reset(ctx, hw.HardReset)
	default:
		return errors.New(usage)
	}
}

func (b *bridge) send(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	return b.cam.SendAnyCommandAndWait(ctx, strings.Join(args, " "))
}
