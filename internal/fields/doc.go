// Package fields generates potential profiles and initial wavefunctions on
// a grid. Every generator is a pure function of the grid positions and its
// parameters; none of them depends on a simulator.
//
// Rectangular windows are open intervals: a point exactly on the edge of a
// barrier is outside it.
package fields
