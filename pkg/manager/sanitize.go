// Copyright 2026 © The Maestro Authors
// SPDX-License-Identifier: Apache-2.0

package manager

import (
	"regexp"
	"strings"
)

// QualifiedDelimiter separates a sanitized server prefix from the
// server-local tool name in a qualified tool id.
const QualifiedDelimiter = "--"

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeName maps a server name onto the identifier alphabet accepted
// by downstream model APIs. Every character outside [a-zA-Z0-9_-]
// becomes an underscore. Distinct server names may collide after
// sanitization; registration rejects the second one.
func SanitizeName(name string) string {
	return unsafeNameChars.ReplaceAllString(name, "_")
}

// QualifyName builds the qualified id for a tool owned by serverName.
func QualifyName(serverName, toolName string) string {
	return SanitizeName(serverName) + QualifiedDelimiter + toolName
}

// splitQualified splits id at the rightmost delimiter occurrence so
// that server prefixes containing the delimiter themselves still
// decode. ok is false when the id holds no delimiter or either half
// would be empty.
func splitQualified(id string) (prefix, tool string, ok bool) {
	idx := strings.LastIndex(id, QualifiedDelimiter)
	if idx <= 0 {
		return "", "", false
	}
	prefix, tool = id[:idx], id[idx+len(QualifiedDelimiter):]
	if tool == "" {
		return "", "", false
	}
	return prefix, tool, true
}
