/*
Package session keeps many independent harnesses alive at once, one per client,
for the multi-user surfaces (HTTP and MCP).

Sessions are identified by random UUIDs and live only in memory. Operations on
one session are applied one at a time through WithLock, while different sessions
never block each other.
*/
package session
