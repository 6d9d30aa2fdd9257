// Package models defines the value types exchanged between the transfer
// engine, the provider clients, and the CLI.
//
// TrackRef and PlaylistRef are read-only projections of provider catalog
// data fetched per job. JobReport is assembled once by the engine and is
// immutable after it is returned; callers own any further persistence.
package models
