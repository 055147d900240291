package command

import (
	"fmt"

	"github.com/pixil98/go-craft/internal/driver"
	"github.com/pixil98/go-craft/internal/listener"
	"github.com/pixil98/go-craft/internal/messaging"
	"github.com/pixil98/go-craft/internal/session"
	"github.com/pixil98/go-craft/internal/world"
	"github.com/pixil98/go-service"
)

func BuildWorkers(config interface{}) (service.WorkerList, error) {
	cfg, ok := config.(*Config)
	if !ok {
		return nil, fmt.Errorf("unable to cast config")
	}

	// World state: chunk persistence behind a cache, entities in the registry
	store, err := cfg.Storage.BuildChunkStore()
	if err != nil {
		return nil, fmt.Errorf("creating chunk store: %w", err)
	}
	chunks := world.NewChunkCache(store, store, cfg.Storage.Generator.BuildGenerator())
	registry := world.NewRegistry(chunks)

	// Broadcast bus over the embedded nats server
	natsServer, err := cfg.Nats.BuildNatsServer()
	if err != nil {
		return nil, fmt.Errorf("creating nats server: %w", err)
	}
	bus := messaging.NewBus(natsServer)

	settings, err := cfg.Server.BuildSettings()
	if err != nil {
		return nil, fmt.Errorf("building server settings: %w", err)
	}
	sessionManager := session.NewManager(settings, registry, bus)
	connManager := listener.NewConnectionManager(sessionManager)

	// Create Listeners
	listeners := make(service.WorkerList, len(cfg.Listeners))
	for i, l := range cfg.Listeners {
		lst, err := l.BuildListener(connManager)
		if err != nil {
			return nil, fmt.Errorf("creating listener %d: %w", i, err)
		}
		listeners[fmt.Sprintf("listener-%d", i)] = lst
	}

	// Setup the game driver: keep-alives and timeouts, then chunk flushes
	var driverOpts []driver.GameDriverOpt
	tick, err := cfg.tickInterval()
	if err != nil {
		return nil, fmt.Errorf("parsing tick_interval: %w", err)
	}
	if tick > 0 {
		driverOpts = append(driverOpts, driver.WithTickLength(tick))
	}
	gameDriver := driver.NewGameDriver([]driver.Manager{
		sessionManager,
		registry,
	}, driverOpts...)

	// Create a worker list
	return service.WorkerList{
		"nats":      natsServer,
		"sessions":  sessionManager,
		"driver":    gameDriver,
		"listeners": &listeners,
	}, nil
}
