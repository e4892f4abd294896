// Package models defines domain entities and persistence interfaces for libstats.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): immutable values fetched from Spotify
//   - [Record] : one saved track with the time it was saved and the album it belongs to
//   - [Album] : an album with its genre list, looked up in batches
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Snapshot] : a computed histogram saved for later comparison
//
// Tokens and fetched records are never persisted.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
