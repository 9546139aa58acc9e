// Command biopipe processes wearable biosignal recordings: it stages raw
// session folders, decodes binary chunks into per-subject signal tables,
// splits them into experiment phases, and extracts feature tables for
// analysis.
package main
