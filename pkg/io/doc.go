// Package io provides JSON import and export for classified lock graphs.
//
// # Overview
//
// A [Report] is the machine-readable form of what the convert command
// decided: every package in uv.lock with its group, every dependency edge,
// the orphans that were omitted and the edges that close a cycle. It is
// what `uvburn inspect --json` prints, and it can be read back for
// diffing two conversions.
//
// # JSON Format
//
//	{
//	  "root": "acme-service",
//	  "nodes": [
//	    {"id": "requests", "name": "requests", "version": "2.32.3",
//	     "kind": "registry", "group": "default"},
//	    {"id": "idna", "name": "idna", "version": "3.7",
//	     "kind": "registry", "group": "default"}
//	  ],
//	  "edges": [
//	    {"from": "requests", "to": "idna"}
//	  ],
//	  "orphans": [],
//	  "cycles": []
//	}
//
// # Node Fields
//
//   - id: normalized package name
//   - name, version, kind: as recorded in uv.lock
//   - group: "default", "develop", or omitted for orphans and the root
//   - marker: the environment marker written to Pipfile.lock, if any
//
// # Edge Fields
//
//   - from, to: node IDs
//   - marker: the marker on the lock edge, if any
//   - extras: extras the edge activates on its target
//   - extra: set when the edge belongs to an optional dependency table
//   - group: set when the edge belongs to a dev-dependency group
//
// # Import
//
// Use [ImportJSON] to read a report from a file path, or [ReadJSON] to read
// from any io.Reader. Both validate the structure: node IDs must be unique
// and every edge, orphan and cycle must reference a known node.
//
// # Export
//
// Use [ExportJSON] to write a report to a file, or [WriteJSON] to write to
// any io.Writer. Output is deterministic: nodes and edges keep lock order.
package io
