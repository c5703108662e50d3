package main

import (
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Connectivity", statusError, "offline", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Connectivity:", "[ERROR] offline")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Signed in", statusOK, "user 42", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

func TestRenderTableAlignsColumns(t *testing.T) {
	out := renderTable([]string{"ID", "Name"}, [][]string{{"1", "choro"}, {"12", "riso"}}, 0)
	if !strings.Contains(out, "choro") || !strings.Contains(out, "riso") {
		t.Fatalf("missing rows in table:\n%s", out)
	}
}

func TestParseFieldsKeepsJSONTypes(t *testing.T) {
	fields, err := parseFields([]string{"idade=7", "nome=Ana Maria", "ativo=true"})
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if fields["idade"] != float64(7) || fields["nome"] != "Ana Maria" || fields["ativo"] != true {
		t.Fatalf("unexpected fields: %#v", fields)
	}
	if _, err := parseFields([]string{"broken"}); err == nil {
		t.Fatal("expected error for pair without '='")
	}
}
