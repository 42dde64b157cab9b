// Package console implements the operator input loop: one line of terminal
// input at a time, each fanned out to every connected browser before the next
// line is read.
package console
