// Package tools implements the mock pharmacy and shipment backend that the
// assistant calls by tool name. Arguments are checked against each tool's
// JSON schema and decoded by field name; orders live behind an OrderStore
// and shipment lookups behind a Tracker.
package tools
