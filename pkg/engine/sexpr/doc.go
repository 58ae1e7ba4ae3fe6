/*
Package sexpr provides the reference computation engines: a reader for a small
s-expression language and an arithmetic evaluator built on it.

The reader turns source text into a Module, the syntax tree of every top-level
expression with its source Region. Three expression kinds exist:

	Number  5, 3.25
	Symbol  def, +, <=, a/b
	List    (defn five () (+ 2 3))

Regions are 1-based and inclusive, and are rendered as the four-element array
[startLine, startCol, endLine, endCol].

Reader implements ports.ComputationEngine by returning the Module itself;
Evaluator implements it by computing the program.
*/
package sexpr
