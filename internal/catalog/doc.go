// Package catalog provides read access to the reference card database.
//
// The catalog is an external, immutable dataset of known cards and
// their printings, imported from a JSON dump into SQLite. The scanning
// core only reads it; the single exception is persisting a virtual
// printing accepted from a region-normalized match, which records a
// localized printing the dump did not carry yet.
package catalog
