// Package sqlite provides the local relational catalog store backed by
// modernc.org/sqlite (pure Go, no cgo).
//
// Collections are keyed by their source ID. Products are keyed by
// (collection, product) since the source lets one product appear in several
// collections. Photo records map the URLs chosen during a sync to the keys
// the photo storage saved them under.
package sqlite
