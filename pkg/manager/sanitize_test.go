// SPDX-License-Identifier: Apache-2.0

package manager

import "testing"

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"github", "github"},
		{"my-server_1", "my-server_1"},
		{"a.b", "a_b"},
		{"weather api", "weather_api"},
		{"srv/with:odd@chars", "srv_with_odd_chars"},
		{"ünïcode", "_n_code"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestQualifyName(t *testing.T) {
	if got := QualifyName("a.b", "fetch"); got != "a_b--fetch" {
		t.Errorf("QualifyName = %q, want a_b--fetch", got)
	}
}

func TestSplitQualified(t *testing.T) {
	tests := []struct {
		in         string
		prefix     string
		tool       string
		ok         bool
	}{
		{"github--create_issue", "github", "create_issue", true},
		{"a--b--c", "a--b", "c", true},
		{"plain_tool", "", "", false},
		{"--tool", "", "", false},
		{"server--", "", "", false},
		{"", "", "", false},
	}
	for _, tt := range tests {
		prefix, tool, ok := splitQualified(tt.in)
		if prefix != tt.prefix || tool != tt.tool || ok != tt.ok {
			t.Errorf("splitQualified(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.in, prefix, tool, ok, tt.prefix, tt.tool, tt.ok)
		}
	}
}
