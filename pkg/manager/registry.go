// SPDX-License-Identifier: Apache-2.0

package manager

import "sort"

// registry tracks connected clients by registered name alongside the
// last connection error seen per name. Failed connection attempts leave
// an error entry without a client so callers can still inspect what
// went wrong with best-effort servers.
type registry struct {
	clients  map[string]Connector
	lastErrs map[string]string
}

func newRegistry() *registry {
	return &registry{
		clients:  map[string]Connector{},
		lastErrs: map[string]string{},
	}
}

func (r *registry) get(name string) (Connector, bool) {
	c, ok := r.clients[name]
	return c, ok
}

func (r *registry) put(name string, conn Connector) {
	r.clients[name] = conn
	delete(r.lastErrs, name)
}

func (r *registry) remove(name string) (Connector, bool) {
	conn, ok := r.clients[name]
	delete(r.clients, name)
	delete(r.lastErrs, name)
	return conn, ok
}

func (r *registry) setError(name, msg string) {
	r.lastErrs[name] = msg
}

func (r *registry) names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *registry) errors() map[string]string {
	out := make(map[string]string, len(r.lastErrs))
	for name, msg := range r.lastErrs {
		out[name] = msg
	}
	return out
}
