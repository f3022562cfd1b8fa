// Package record defines the records of an upload batch.
//
// A record is identified by an id that is unique within its batch. Its
// values are either plain, a direct link to one other record, or rich text
// that may embed references to several records as IRI:<id>:IRI markers.
//
// This package imports nothing internal. Every other package builds on it.
package record
