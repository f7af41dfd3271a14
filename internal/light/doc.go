// Package light defines the lights the bridge manages and the registry
// that owns them.
//
// A light is either physical (driven by a protocol driver such as
// native_multi or mqtt) or virtual: a composite with no device of its own
// whose protocol config lists linked child lights. Every light carries a
// cached state map guarded by its own mutex; the recognised keys are on,
// bri, hue, sat, xy, ct, colormode and reachable.
//
// Lights are loaded from a YAML file (LoadFile) into a Registry. Protocol
// config is decoded on demand with mapstructure, so "2" and 2 are both a
// valid channel and a bad config degrades only the light that carries it.
//
// State snapshots of virtual lights are persisted through a
// HistoryRepository; SQLiteHistoryRepository is the production
// implementation.
package light
