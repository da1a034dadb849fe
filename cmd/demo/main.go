// Command demo wires a Provider with both parallelism schemas: a
// dedicated-worker heartbeat model and a request/reply echo model
// hosted on a supervised pool, then runs for a few seconds and shuts
// down cleanly.
package main

import (
	"context"
	"flag"
	"time"

	"go.uber.org/zap"

	"github.com/meshframe/actorcore/container"
	"github.com/meshframe/actorcore/model"
	"github.com/meshframe/actorcore/providerconfig"
	"github.com/meshframe/actorcore/router"

	"github.com/meshframe/actorcore/provider"
)

const signalHeartbeat = "heartbeat"
const signalEcho = "echo"

func main() {
	configPath := flag.String("config", "", "path to a provider config JSON file (optional)")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck

	cfg := providerconfig.Default()
	cfg.Schema = providerconfig.SchemaPool // the echo model below is pool-hosted by default
	if *configPath != "" {
		loaded, err := providerconfig.Load(*configPath)
		if err != nil {
			log.Fatal("load provider config", zap.Error(err))
		}
		cfg = loaded
	}

	r := router.New()
	if err := router.RegisterDefaultEncodersDecoders(r); err != nil {
		log.Fatal("register default codecs", zap.Error(err))
	}
	if _, err := router.RegisterSignal[int](r, signalHeartbeat, func(_ *router.Router, _ router.ModelRef, _ *router.Signal, tick int) error {
		log.Info("heartbeat", zap.Int("tick", tick))
		return nil
	}); err != nil {
		log.Fatal("register heartbeat", zap.Error(err))
	}
	if _, err := router.RegisterSignal[string](r, signalEcho, func(_ *router.Router, _ router.ModelRef, sig *router.Signal, text string) error {
		sig.Fulfill(sig.Content)
		sig.Handled = true
		return nil
	}); err != nil {
		log.Fatal("register echo", zap.Error(err))
	}

	p := provider.New(r, log)
	p.UseConfig(cfg)
	p.Start()
	defer func() {
		p.Shutdown()
		if err := p.AwaitClose(5 * time.Second); err != nil {
			log.Error("await close", zap.Error(err))
		}
	}()

	heartbeatModel, heartbeatContainer := p.NewModel(func(m *model.Model) container.Container {
		return container.NewPerModelContainer(m)
	})
	heartbeatContainer.SetUpdateRate(2) // 2Hz
	heartbeatContainer.StartHost()

	// echo is hosted on whatever schema cfg names (pool by default here;
	// DefaultContainer also applies cfg.TargetPools/TargetDensity and
	// cfg.DefaultUpdateRateHz).
	echoModel, echoContainer := p.NewModel(p.DefaultContainer)
	echoContainer.StartHost()

	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			<-ticker.C
			if _, err := p.Registry.SendSignal(signalHeartbeat, i, heartbeatModel.ID(), 0); err != nil {
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := p.Registry.SendSignalAwait(ctx, signalEcho, "hello", echoModel.ID(), 0); err != nil {
		log.Warn("echo await failed", zap.Error(err))
	}

	time.Sleep(3 * time.Second)
}
