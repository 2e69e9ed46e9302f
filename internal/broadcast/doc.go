// Package broadcast implements the WebSocket alert hub using the actor pattern.
//
// The Hub fans triggered campaign alerts out to every connected dashboard client.
// Uses single goroutine + command channel (no mutexes). Per-connection write goroutines handle slow clients gracefully.
package broadcast
