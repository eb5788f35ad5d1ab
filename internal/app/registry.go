package app

import (
	"context"
	"fmt"

	"shellboot/internal/boot"
	"shellboot/internal/ipc"
	"shellboot/internal/store"
	"shellboot/internal/updates"
	"shellboot/pkg/logging"
)

// Fixed progress shares for the built-in stages. Supervised services carry
// their configured weights in between.
const (
	stateStoreWeight  = 15.0
	ipcServerWeight   = 15.0
	updateCheckWeight = 5.0
)

// buildRegistry assembles the startup order: state store first, then every
// enabled supervised service, then the IPC server, then the optional
// release probe.
func (a *Application) buildRegistry() (*boot.Registry, error) {
	descriptors := []boot.ServiceDescriptor{
		{
			ID:          "state-store",
			DisplayName: "state store",
			Weight:      stateStoreWeight,
			Required:    true,
			Init:        a.initStateStore,
		},
	}

	for _, svc := range a.cfg.Services {
		if !svc.Enabled {
			continue
		}
		name := svc.Name
		descriptors = append(descriptors, boot.ServiceDescriptor{
			ID:              name,
			DisplayName:     svc.DisplayName,
			Weight:          svc.Weight,
			Required:        !svc.Optional,
			ProgressService: name,
			Init: func(ctx context.Context) error {
				return a.manager.StartProcess(ctx, name)
			},
		})
	}

	if a.cfg.IPC.IsEnabled() {
		descriptors = append(descriptors, boot.ServiceDescriptor{
			ID:          "ipc-server",
			DisplayName: "request handlers",
			Weight:      ipcServerWeight,
			Required:    true,
			Init:        a.initIPCServer,
		})
	}

	if a.cfg.Updates.ShouldCheck() {
		descriptors = append(descriptors, boot.ServiceDescriptor{
			ID:          "update-check",
			DisplayName: "update check",
			Weight:      updateCheckWeight,
			Required:    false,
			Init:        a.initUpdateCheck,
		})
	}

	return boot.NewRegistry(descriptors)
}

func (a *Application) initStateStore(ctx context.Context) error {
	path, err := resolveStatePath(a.cfg)
	if err != nil {
		return err
	}

	st, err := store.Open(path)
	if err != nil {
		return err
	}
	bootCount, clean, err := st.RecordBoot()
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.store = st
	a.bootCount = bootCount
	a.cleanStart = clean
	a.mu.Unlock()

	if !clean && bootCount > 1 {
		logging.Warn("App", "Previous session did not shut down cleanly")
	}
	logging.Debug("App", "State store open, boot #%d", bootCount)
	return nil
}

func (a *Application) initIPCServer(ctx context.Context) error {
	port, ok := a.allocator.Port(ipcPortName)
	if !ok {
		return fmt.Errorf("no port reserved for the ipc server")
	}

	server := ipc.NewServer(
		ipc.Config{Host: a.cfg.IPC.Host, Port: port},
		a.shellStatus,
		a.serviceStatuses,
	)
	if err := server.Start(ctx); err != nil {
		return err
	}

	a.mu.Lock()
	a.ipcServer = server
	a.mu.Unlock()

	logging.Info("App", "Request handlers at %s", server.Endpoint())
	return nil
}

func (a *Application) initUpdateCheck(ctx context.Context) error {
	probe := updates.NewProbe(a.cfg.Updates.RepoSlug, a.opts.Version)
	avail, err := probe.Check(ctx)
	if err != nil {
		return err
	}

	if avail.UpdateAvailable {
		a.mu.Lock()
		st := a.store
		a.mu.Unlock()
		if st != nil {
			if err := st.Set("latest-version", avail.LatestVersion); err != nil {
				logging.Warn("App", "Failed to record latest version: %v", err)
			}
		}
	}
	return nil
}
