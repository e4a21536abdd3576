// Package server implements the hub's TCP endpoint for robot connections.
//
// The server performs the following steps:
//	1. Binds the configured TCP address. A bind failure is fatal and aborts
//	   startup before any session can exist.
//	2. Accepts connections in a loop. Each accepted socket gets its own
//	   session, which runs the per-connection reader and writer loops.
//	3. Transient accept failures are logged and the loop continues; only
//	   listener closure ends it.
//	4. On shutdown, closes the listener to stop accepting, then waits for
//	   every live session to finish its cleanup.
//
// The server holds no per-robot state of its own: all shared state lives in
// the registry the sessions feed, so any number of connections can come and
// go without coordinating with each other.
package server
