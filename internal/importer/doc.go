// Package importer parses story batches out of base64 text/csv data urls,
// the format estimation tools export issues in.
package importer
