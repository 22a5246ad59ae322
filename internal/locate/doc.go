// Package locate drives bounded-retry location acquisition for Beacon.
//
// # Overview
//
// A Controller asks a geo.Provider for the device position and publishes
// the outcome as Snapshots. When an attempt fails it waits a fixed delay
// and tries again, up to a configured number of retries, before giving up.
// The first attempt of a cycle carries a short timeout; retries leave the
// timeout to the provider unless UniformTimeout is set.
//
// # Cycle Lifecycle
//
//	RequestLocation()
//	      ↓
//	  [Pending] ──OnLocateSucceeded──→ [Found]   (viewport recentered)
//	      │
//	 OnLocateFailed
//	      ↓
//	 retries left? ──no──→ [Failed]  "<reason> (Max retries reached)"
//	      │ yes
//	      ↓
//	 retry++, "Retrying... (n/max)", timer(RetryDelay)
//	      ↓
//	 timer fires → provider.Locate(...) → back to Pending
//
// A new RequestLocation at any point abandons the pending retry and the
// outstanding attempt, resets the retry count and starts a fresh cycle with
// a new cycle ID. A position found earlier stays visible until the new cycle
// either succeeds or is exhausted.
//
// # Concurrency Model
//
// Every entry point, provider report and timer callback runs under one
// mutex. The provider is invoked after the mutex is released, so providers
// may report synchronously from inside Locate. The viewport is recentered
// while the mutex is held, which keeps it on the newest fix; like
// observers, it must not call back into the controller.
//
// At most one retry timer exists at a time. Each scheduled timer carries a
// sequence number; a callback whose number is no longer current returns
// without effect, which covers callbacks that were already running when
// Stop was called.
//
// Each provider invocation gets its own context and its own Handler. When
// the attempt is superseded the context is cancelled and any report that
// still arrives through that handler is dropped. Calling OnLocateSucceeded
// or OnLocateFailed on the Controller itself always applies to the current
// cycle.
//
// # Observers
//
// Observers receive every snapshot in transition order. Notify runs while
// the controller is locked, so observers must copy what they need and
// return. state.Store and telemetry.Recorder are the production observers.
//
// # Testing
//
// Options.Clock replaces timer scheduling, and a fake Provider that records
// its calls lets tests report outcomes for specific attempts:
//
//	clk := newFakeClock()
//	c := locate.New(provider, &locate.Options{
//		Timeout:    3 * time.Second,
//		MaxRetries: 3,
//		RetryDelay: 3 * time.Second,
//		Clock:      clk,
//	})
//	c.RequestLocation()
//	provider.last().h.OnLocateFailed("timeout")
//	clk.live()[0].fire()
package locate
