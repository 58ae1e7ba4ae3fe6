/*
Package domain holds the data model shared by every part of the harness.

  - Value: the tagged union (null, bool, number, string, list, map) an engine result is converted into.
  - OrderedMap: string-keyed mapping that keeps the order the engine produced.
  - Outcome and EvaluationEvent: what one trigger cycle produced.
  - EngineFailure and SerializationFailure: the two surfaced error kinds.
*/
package domain
