/*

Process of compilation

Program Text ->
	front ->
Abstract Syntax Tree (ast) ->
	lower ->
Intermediate Representation (ir) ->
	hir ->
IR with Storage Layout and Moves (hir) ->
	back ->
RV64 Assembly Text ->
	emu ->
Emulator Output

*/
package compiler
