// Package store keeps the dashboard's current snapshot and fans changes out
// to subscribers.
//
// The main components are:
//
//   - [Store]: Interface defining snapshot and subscription operations
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//   - [Snapshot]: The rendered fragment, its sequence number and the theme
//
// Subscribers receive updates via channels with non-blocking sends (slow
// subscribers will miss updates rather than block the poll loop).
package store
