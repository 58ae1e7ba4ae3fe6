/*
Package runner implements the interactive loop (REPL) that drives a harness.

It acts as the bridge between the harness and a terminal or a parent process.
Lines typed by the user edit the input buffer; commands trigger evaluations and
show the buffers. Nothing is evaluated until the user asks for it.

# Key Components

  - Runner: reads commands from an IOHandler and applies them to a harness.
  - TextHandler: line-oriented human interface (":run", ":clear", ...).
  - JSONHandler: newline-delimited JSON requests and responses, for tooling.

# Usage

	h, _ := harness.New(harness.WithEngineName("eval"))
	r := runner.NewRunner(
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, h); err != nil {
		log.Fatal(err)
	}
*/
package runner
