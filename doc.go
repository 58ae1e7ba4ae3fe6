/*
Package harness is an interactive evaluation harness: it holds an editable text
input, hands a snapshot of it to a pluggable computation engine on demand, and
shows the engine's structured result as canonical, 4-space indented JSON.

It separates three concerns. The input state (what the user typed), the output
state (what is shown) and the trigger that connects them through a
ComputationEngine. Edits never evaluate anything by themselves; only Run does.
This Hexagonal Architecture lets the same core be driven from a REPL, an HTTP
server or an MCP agent.

# Key Features

  - Verbatim Input: whatever is set is exactly what the engine receives.
  - Canonical Output: results are rendered as pretty JSON with stable key order.
  - Explicit Failures: engine errors and panics are surfaced, never swallowed.
  - Ordered Results: a slow, older evaluation never overwrites a newer one.

# Usage

	package main

	import (
		"context"
		"fmt"
		"log"

		"github.com/aretw0/harness"
	)

	func main() {
		h, err := harness.New(harness.WithEngineName("eval"))
		if err != nil {
			log.Fatal(err)
		}

		h.SetInput("(defn answer () (* 6 7))")
		if _, err := h.Run(context.Background()); err != nil {
			log.Fatal(err)
		}
		fmt.Println(h.Output())
		// {
		//     "answer": 42
		// }
	}
*/
package harness
