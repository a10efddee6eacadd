// Package project models buildable units and the set they live in.
//
// A Project is loaded from one descriptor. A ProjectSet owns every project of
// a solution, resolves dependency names into graph edges and answers ordering
// queries: exact and transitive build orders, the transitive dynamic-library
// closure used at link time, and the selector grammar of the command line.
package project
