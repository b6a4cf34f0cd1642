// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	maestroerrors "github.com/jllopis/maestro/pkg/errors"
	mcpclient "github.com/jllopis/maestro/pkg/mcp"
)

// ConnectAll dials every configured server concurrently and waits for
// all attempts to finish, successful or not. Failures of best-effort
// servers are logged and recorded but excluded from the returned error;
// the error aggregates only the required servers that failed. Servers
// that did connect stay registered either way.
func (m *Manager) ConnectAll(ctx context.Context, servers map[string]mcpclient.ServerConfig) error {
	var wg sync.WaitGroup
	var failMu sync.Mutex
	failures := map[string]error{}
	var requiredFailed []string

	for name, cfg := range servers {
		wg.Add(1)
		go func(name string, cfg mcpclient.ServerConfig) {
			defer wg.Done()
			err := m.Connect(ctx, name, cfg)
			if err == nil {
				m.logger.Info("manager.connect", "server", name, "mode", string(cfg.Mode))
				return
			}
			failMu.Lock()
			failures[name] = err
			if cfg.Required() {
				requiredFailed = append(requiredFailed, name)
			}
			failMu.Unlock()
			if cfg.Required() {
				m.logger.Error("manager.connect.failed", "server", name, "mode", string(cfg.Mode), "error", err)
			} else {
				m.logger.Warn("manager.connect.failed", "server", name, "mode", string(cfg.Mode), "error", err)
			}
		}(name, cfg)
	}
	wg.Wait()

	if len(requiredFailed) == 0 {
		return nil
	}
	sort.Strings(requiredFailed)
	causes := make([]error, 0, len(requiredFailed))
	for _, name := range requiredFailed {
		causes = append(causes, fmt.Errorf("%s: %w", name, failures[name]))
	}
	return maestroerrors.New(maestroerrors.CodeConnectFailure,
		fmt.Sprintf("required servers failed to connect: %s", strings.Join(requiredFailed, ", ")),
		stderrors.Join(causes...)).
		WithContext("failed_servers", requiredFailed)
}
