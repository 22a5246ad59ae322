// Package state provides thread-safe state shared between the location
// controller and the Beacon UI.
//
// # Overview
//
// Two types live here:
//
//   - Store: the latest controller snapshot plus a bounded activity list.
//     It is registered as a locate.Observer.
//   - View: the map viewport. The controller recenters it after every fix;
//     the UI zooms and resets it from key presses.
//
// # Architecture
//
//	Producer (Controller):          Consumer (UI):
//	┌──────────────────────┐       ┌──────────────────┐
//	│ transition           │       │                  │
//	│      ↓               │       │                  │
//	│ store.Notify(snap)   │──────→│ store.Snapshot() │
//	│ view.FlyTo(fix, z)   │(mutex)│ view.Snapshot()  │
//	└──────────────────────┘       │      ↓           │
//	                               │  render on tick  │
//	                               └──────────────────┘
//
// Notify runs while the controller holds its own lock, so it only copies
// the snapshot and appends to the activity list. It never calls back into
// the controller.
//
// # Snapshot Semantics
//
// Every Notify replaces Location wholesale. The Transitions slice keeps the
// most recent entries, oldest first, and is cloned on read so the UI can
// hold a snapshot across renders without racing the controller.
//
// ConsecutiveFailures counts exhausted cycles since the last fix, which lets
// the header flag a struggling provider:
//
//	store.Notify(snap{Event: exhausted}) → ConsecutiveFailures = 1
//	store.Notify(snap{Event: exhausted}) → ConsecutiveFailures = 2, IsStruggling
//	store.Notify(snap{Event: found})     → ConsecutiveFailures = 0
//
// # Testing Considerations
//
// A zero Store is ready to use and reports HasSnapshot = false until the
// first Notify. A View must be built with NewView so Reset has a home.
package state
