// Package normalisers provides implementations of the Normaliser interface
// for the document formats the fetch stage accepts. Each normaliser knows
// how to extract plain text from a specific MIME type.
//
// Normalisers are registered with the Registry at startup.
package normalisers
