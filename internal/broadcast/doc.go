// Package broadcast pushes balance and wallet changes to connected
// dashboards in real time.
//
// Delivery model
//
// Events originate in the transactional outbox, travel over a pub/sub
// channel and fan out through an in-process hub to websocket sessions.
// Delivery to a session is at most once: frames are dropped when a consumer
// is slow or when they arrive out of order, never retried. Correctness on
// the client therefore rests on two rules:
//
//  1. Snapshot on subscribe. A session receives a full balance snapshot
//     immediately after the socket opens, read after the subscription is
//     registered. Events older than the snapshot's version are filtered out
//     by the hub, so the client never regresses below what it first saw.
//
//  2. Versioned frames. Every frame carries the aggregate's version, which
//     increments by exactly one per committed mutation. A client that
//     observes a gap (next version > last version + 1) has missed a frame
//     and must reconcile by re-fetching the snapshot endpoint, then resume
//     applying frames from the new version. Frames at or below the client's
//     current version are safe to ignore.
//
// Clients should also reconcile after every reconnect and on a coarse timer
// as a backstop, since dropped frames produce no signal at all.
package broadcast
