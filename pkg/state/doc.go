/*
Package state holds the two pieces of mutable state of an evaluation harness.

  - Input: the raw text the user is editing. Stored verbatim.
  - Output: the most recently rendered result text.

Both are explicit objects passed by reference, so the evaluation cycle can be
exercised without any display framework. Accessors are safe for concurrent use;
locking only orders access and never alters the stored text.
*/
package state
