// Package graph provides the manifest format for document graphs.
//
// A manifest is a human-editable description of a session: the documents a
// host has open, their kinds and flags, and the ordered references between
// them. It is how docwalk gets a graph without a running CAD host, and the
// interchange format for loading the Redis and Mongo backends.
//
// # Formats
//
// The same [Manifest] type round-trips through TOML, JSON and YAML. The format
// is picked from the file extension:
//
//	.toml          TOML (the default)
//	.json          JSON
//	.yaml, .yml    YAML
//
// A TOML manifest looks like this:
//
//	name = "gearbox"
//
//	[[documents]]
//	id = "gearbox"
//	kind = "assembly"
//	path = "Gearbox.iam"
//	modifiable = true
//
//	[[documents.references]]
//	target = "housing"
//
//	[[documents.references]]
//	target = "Motor.stp"
//	suppressed = true
//
//	[[documents]]
//	path = "Housing.ipt"
//	occurrences = ["Housing:1"]
//	[documents.properties]
//	Material = "Cast Iron"
//
// # Identity
//
// Documents without an id get a stable one derived from their path with
// uuid.NewSHA1, so re-reading the same manifest yields the same IDs. A kind
// left empty is inferred from the path extension (".iam", ".ipt", ".idw",
// ".ipn", ".sat", ".step"), falling back to "unknown".
//
// # References
//
// A reference target is matched against document IDs first and paths second.
// Targets that match nothing become missing references that keep the target
// text as their full name; they never fail the load.
//
// # Conversion
//
//	g, err := graph.ReadFile("session.toml")  // File → *memory.Graph
//	m := graph.FromMemory(g)                  // *memory.Graph → Manifest
//	err = graph.WriteFile(m, "session.yaml")  // Manifest → File
package graph
