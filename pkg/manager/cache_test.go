// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func snapWithTools(names ...string) *serverSnapshot {
	snap := newServerSnapshot()
	for _, n := range names {
		snap.tools[n] = mcp.Tool{Name: n, Description: n + " does things"}
	}
	return snap
}

func TestCacheUncontestedToolKeepsBareName(t *testing.T) {
	c := newCapabilityCache()
	c.setServer("github", snapWithTools("create_issue"))

	server, tool, ok := c.resolveTool("create_issue")
	if !ok || server != "github" || tool != "create_issue" {
		t.Fatalf("resolveTool = (%q, %q, %v)", server, tool, ok)
	}
	merged := c.mergedTools()
	if _, bare := merged["create_issue"]; !bare {
		t.Error("uncontested tool missing under bare name")
	}
	if _, qualified := merged["github--create_issue"]; qualified {
		t.Error("uncontested tool should not be qualified")
	}
}

func TestCacheConflictQualifiesAllProducers(t *testing.T) {
	c := newCapabilityCache()
	c.setServer("alpha", snapWithTools("search"))
	c.setServer("beta", snapWithTools("search"))

	merged := c.mergedTools()
	if _, bare := merged["search"]; bare {
		t.Error("contested bare name must not appear in merged view")
	}
	for _, id := range []string{"alpha--search", "beta--search"} {
		tool, ok := merged[id]
		if !ok {
			t.Fatalf("missing qualified entry %q", id)
		}
		if tool.Name != id {
			t.Errorf("qualified entry %q has name %q", id, tool.Name)
		}
		if !strings.Contains(tool.Description, "(via ") {
			t.Errorf("qualified entry %q lacks producer annotation: %q", id, tool.Description)
		}
	}

	// Bare lookups of a contested name must not resolve.
	if _, _, ok := c.resolveTool("search"); ok {
		t.Error("bare contested name resolved")
	}
	server, tool, ok := c.resolveTool("beta--search")
	if !ok || server != "beta" || tool != "search" {
		t.Errorf("qualified resolve = (%q, %q, %v)", server, tool, ok)
	}
}

func TestCacheHealsAfterProducerRemoval(t *testing.T) {
	c := newCapabilityCache()
	c.setServer("alpha", snapWithTools("search", "only_alpha"))
	c.setServer("beta", snapWithTools("search"))

	c.removeServer("beta")

	server, tool, ok := c.resolveTool("search")
	if !ok || server != "alpha" || tool != "search" {
		t.Fatalf("bare name did not heal: (%q, %q, %v)", server, tool, ok)
	}
	merged := c.mergedTools()
	if _, qualified := merged["alpha--search"]; qualified {
		t.Error("healed tool still listed under qualified id")
	}
	if _, bare := merged["search"]; !bare {
		t.Error("healed tool missing under bare name")
	}
	if _, ok := merged["only_alpha"]; !ok {
		t.Error("unrelated tool lost during rebuild")
	}
}

func TestCacheLiteralNameContainingDelimiter(t *testing.T) {
	c := newCapabilityCache()
	c.setServer("srv", snapWithTools("legacy--tool"))

	// No server sanitizes to "legacy", so the qualified reading fails
	// and the literal index must serve the lookup.
	server, tool, ok := c.resolveTool("legacy--tool")
	if !ok || server != "srv" || tool != "legacy--tool" {
		t.Fatalf("literal fallback failed: (%q, %q, %v)", server, tool, ok)
	}
}

func TestCacheQualifiedReadingShadowsLiteral(t *testing.T) {
	c := newCapabilityCache()
	c.setServer("legacy", snapWithTools("tool"))
	c.setServer("srv", snapWithTools("legacy--tool"))

	// Qualified interpretation wins when a registered prefix matches.
	server, tool, ok := c.resolveTool("legacy--tool")
	if !ok || server != "legacy" || tool != "tool" {
		t.Fatalf("qualified reading should win: (%q, %q, %v)", server, tool, ok)
	}
}

func TestCachePromptAndResourceIndices(t *testing.T) {
	c := newCapabilityCache()
	snap := snapWithTools("t1")
	snap.prompts["summarize"] = struct{}{}
	snap.resources["file:///readme"] = struct{}{}
	c.setServer("srv", snap)

	if server, ok := c.resolvePrompt("summarize"); !ok || server != "srv" {
		t.Errorf("resolvePrompt = (%q, %v)", server, ok)
	}
	if server, ok := c.resolveResource("file:///readme"); !ok || server != "srv" {
		t.Errorf("resolveResource = (%q, %v)", server, ok)
	}
	if names := c.promptNames(); len(names) != 1 || names[0] != "summarize" {
		t.Errorf("promptNames = %v", names)
	}
	if uris := c.resourceURIs(); len(uris) != 1 || uris[0] != "file:///readme" {
		t.Errorf("resourceURIs = %v", uris)
	}
}

func TestCacheToolOrigins(t *testing.T) {
	c := newCapabilityCache()
	c.setServer("alpha", snapWithTools("search"))
	c.setServer("beta", snapWithTools("search", "fetch"))

	origins := c.toolOrigins()
	if got := origins["fetch"]; got.ServerName != "beta" || got.Qualified {
		t.Errorf("fetch origin = %+v", got)
	}
	if got := origins["alpha--search"]; got.ServerName != "alpha" || got.ToolName != "search" || !got.Qualified {
		t.Errorf("alpha--search origin = %+v", got)
	}
	if c.toolCount() != 3 {
		t.Errorf("toolCount = %d, want 3", c.toolCount())
	}
}
