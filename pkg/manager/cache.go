// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
)

// serverSnapshot is the ground-truth capability set discovered from a
// single server. The cache derives every merged index from these.
type serverSnapshot struct {
	tools     map[string]mcp.Tool
	prompts   map[string]struct{}
	resources map[string]struct{}
}

func newServerSnapshot() *serverSnapshot {
	return &serverSnapshot{
		tools:     map[string]mcp.Tool{},
		prompts:   map[string]struct{}{},
		resources: map[string]struct{}{},
	}
}

// capabilityCache maintains the merged capability view across all
// registered servers. It is not safe for concurrent use; the Manager
// serializes access under its lock. Derived indices are always rebuilt
// from the per-server snapshots, never patched in place, so removing a
// conflicting producer heals the bare name automatically.
type capabilityCache struct {
	servers map[string]*serverSnapshot

	// toolIndex maps a bare tool name to its single producer. Tools
	// with more than one producer are absent here and present in
	// conflicts instead.
	toolIndex map[string]string
	conflicts map[string][]string

	promptIndex   map[string]string
	resourceIndex map[string]string

	// sanitizedNames maps sanitize(serverName) back to serverName for
	// qualified-id decoding. Registration keeps it injective.
	sanitizedNames map[string]string
}

func newCapabilityCache() *capabilityCache {
	c := &capabilityCache{servers: map[string]*serverSnapshot{}}
	c.rebuild()
	return c
}

func (c *capabilityCache) setServer(name string, snap *serverSnapshot) {
	c.servers[name] = snap
	c.rebuild()
}

func (c *capabilityCache) removeServer(name string) {
	delete(c.servers, name)
	c.rebuild()
}

func (c *capabilityCache) rebuild() {
	c.toolIndex = map[string]string{}
	c.conflicts = map[string][]string{}
	c.promptIndex = map[string]string{}
	c.resourceIndex = map[string]string{}
	c.sanitizedNames = map[string]string{}

	producers := map[string][]string{}
	for server, snap := range c.servers {
		c.sanitizedNames[SanitizeName(server)] = server
		for tool := range snap.tools {
			producers[tool] = append(producers[tool], server)
		}
		for prompt := range snap.prompts {
			if _, taken := c.promptIndex[prompt]; !taken {
				c.promptIndex[prompt] = server
			}
		}
		for uri := range snap.resources {
			if _, taken := c.resourceIndex[uri]; !taken {
				c.resourceIndex[uri] = server
			}
		}
	}

	for tool, servers := range producers {
		if len(servers) == 1 {
			c.toolIndex[tool] = servers[0]
			continue
		}
		sort.Strings(servers)
		c.conflicts[tool] = servers
	}
}

// resolveTool maps a caller-facing tool id to its owning server and
// server-local name. Qualified interpretation wins; the literal index
// is the fallback, so a tool whose real name contains the delimiter
// stays reachable as long as no qualified reading shadows it.
func (c *capabilityCache) resolveTool(id string) (server, tool string, ok bool) {
	if prefix, local, split := splitQualified(id); split {
		if owner, known := c.sanitizedNames[prefix]; known {
			if snap := c.servers[owner]; snap != nil {
				if _, has := snap.tools[local]; has {
					return owner, local, true
				}
			}
		}
	}
	if owner, known := c.toolIndex[id]; known {
		return owner, id, true
	}
	return "", "", false
}

func (c *capabilityCache) resolvePrompt(name string) (string, bool) {
	server, ok := c.promptIndex[name]
	return server, ok
}

func (c *capabilityCache) resolveResource(uri string) (string, bool) {
	server, ok := c.resourceIndex[uri]
	return server, ok
}

// mergedTools materializes the caller-facing tool view. Uncontested
// tools keep their bare names; contested ones appear once per producer
// under qualified ids with the producer noted in the description.
func (c *capabilityCache) mergedTools() map[string]mcp.Tool {
	merged := make(map[string]mcp.Tool, len(c.toolIndex))
	for name, server := range c.toolIndex {
		merged[name] = c.servers[server].tools[name]
	}
	for name, servers := range c.conflicts {
		for _, server := range servers {
			tool := c.servers[server].tools[name]
			qualified := QualifyName(server, name)
			tool.Name = qualified
			tool.Description = annotateDescription(tool.Description, server)
			merged[qualified] = tool
		}
	}
	return merged
}

func annotateDescription(desc, server string) string {
	if desc == "" {
		return fmt.Sprintf("(via %s)", server)
	}
	return fmt.Sprintf("%s (via %s)", desc, server)
}

// toolOrigins reports every merged tool id with its producer, in the
// form tool listings and diagnostics want.
func (c *capabilityCache) toolOrigins() map[string]ToolOrigin {
	origins := make(map[string]ToolOrigin, len(c.toolIndex))
	for name, server := range c.toolIndex {
		origins[name] = ToolOrigin{ServerName: server, ToolName: name}
	}
	for name, servers := range c.conflicts {
		for _, server := range servers {
			origins[QualifyName(server, name)] = ToolOrigin{
				ServerName: server,
				ToolName:   name,
				Qualified:  true,
			}
		}
	}
	return origins
}

func (c *capabilityCache) promptNames() []string {
	return sortedKeys(c.promptIndex)
}

func (c *capabilityCache) resourceURIs() []string {
	return sortedKeys(c.resourceIndex)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *capabilityCache) toolCount() int {
	n := len(c.toolIndex)
	for _, servers := range c.conflicts {
		n += len(servers)
	}
	return n
}
