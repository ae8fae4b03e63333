package testutil

import (
	"context"
	"testing"

	"github.com/delorenj/holyfields/internal/ir"
	"github.com/delorenj/holyfields/internal/resolver"
	"github.com/delorenj/holyfields/internal/schema"
)

// BuildModule runs load, resolve, and IR build over the given schema
// files, failing the test on any pipeline error.
func BuildModule(t *testing.T, files map[string]string, versions map[string]string, roots ...string) *ir.Module {
	t.Helper()

	dir := WriteSchemaTree(t, files)
	set, err := schema.NewLoader(dir).Load(context.Background(), roots, 4)
	if err != nil {
		t.Fatalf("loading schemas: %v", err)
	}
	graph, err := resolver.Resolve(context.Background(), set, 4)
	if err != nil {
		t.Fatalf("resolving references: %v", err)
	}
	mod, err := ir.NewBuilder(graph, versions).Build()
	if err != nil {
		t.Fatalf("building IR: %v", err)
	}
	return mod
}

// EventModule builds the IR for EventFixture with its matching
// versions.
func EventModule(t *testing.T) *ir.Module {
	t.Helper()
	return BuildModule(t, EventFixture(),
		map[string]string{"messaging": "1.2.0", "common": "0.3.0"},
		"messaging/transcript_created.schema.json",
		"messaging/base_event.schema.json",
		"common/types.schema.json",
	)
}
