// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorString(t *testing.T) {
	err := New(CodeNotFound, "no tool named search", nil)
	if got := err.Error(); got != "[NOT_FOUND] no tool named search" {
		t.Errorf("unexpected error string: %q", got)
	}

	wrapped := New(CodeToolFailure, "call failed", stderrors.New("boom"))
	if got := wrapped.Error(); !strings.Contains(got, "boom") {
		t.Errorf("expected cause in error string, got %q", got)
	}
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("underlying")
	err := New(CodeInternal, "wrapper", cause)

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
}

func TestWithContextAndAttribute(t *testing.T) {
	err := New(CodeDenied, "denied", nil).
		WithContext("tool", "delete_file").
		WithAttribute("server", "filesystem")

	if err.Context["tool"] != "delete_file" {
		t.Errorf("context not recorded: %v", err.Context)
	}
	if err.Attributes["server"] != "filesystem" {
		t.Errorf("attribute not recorded: %v", err.Attributes)
	}
}

func TestAsMaestroError(t *testing.T) {
	plain := stderrors.New("plain")
	me := AsMaestroError(plain)
	if me.Code != CodeInternal {
		t.Errorf("expected CodeInternal for wrapped plain error, got %s", me.Code)
	}

	typed := New(CodeNotFound, "missing", nil)
	if AsMaestroError(typed) != typed {
		t.Error("expected identity for already-typed error")
	}

	if AsMaestroError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeNameConflict, "collision", nil)
	if !HasCode(err, CodeNameConflict) {
		t.Error("HasCode should match direct error")
	}
	if HasCode(err, CodeNotFound) {
		t.Error("HasCode should not match a different code")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !HasCode(wrapped, CodeNameConflict) {
		t.Error("HasCode should traverse wrapped errors")
	}

	if HasCode(nil, CodeNotFound) {
		t.Error("HasCode on nil should be false")
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{CodeNotFound, 404},
		{CodeDenied, 403},
		{CodeNameConflict, 400},
		{CodeInvalidInput, 400},
		{CodeTimeout, 408},
		{CodeNotSupported, 501},
		{CodeInternal, 500},
		{CodeConnectFailure, 500},
	}
	for _, tc := range tests {
		if got := New(tc.code, "x", nil).StatusCode; got != tc.want {
			t.Errorf("%s: expected status %d, got %d", tc.code, tc.want, got)
		}
	}
}

func TestMarshalJSON(t *testing.T) {
	err := New(CodeDenied, "refused", nil).WithContext("tool", "rm")
	data, jsonErr := json.Marshal(err)
	if jsonErr != nil {
		t.Fatalf("marshal failed: %v", jsonErr)
	}
	var decoded map[string]any
	if jsonErr := json.Unmarshal(data, &decoded); jsonErr != nil {
		t.Fatalf("unmarshal failed: %v", jsonErr)
	}
	if decoded["code"] != "EXECUTION_DENIED" {
		t.Errorf("expected code in JSON, got %v", decoded["code"])
	}
}
