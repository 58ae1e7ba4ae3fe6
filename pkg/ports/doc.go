/*
Package ports defines the driven ports (interfaces) of the harness.

These interfaces decouple the evaluation cycle from concrete implementations,
so any engine, however it is built or linked, can be substituted by a stub in
tests.

# Key Interfaces

  - ComputationEngine: maps an input string to a structured result or fails.
  - ResultCache: stores rendered results of a deterministic engine by input (memory, Redis).
*/
package ports
