// Package quantum provides the core primitives for simulating a single
// particle in a one-dimensional box.
//
// The package defines the value types and interfaces shared by the engine,
// the propagators and the analysis tools:
//
//   - [Grid]: uniform spatial grid over [0, L]
//   - [Kinetic]: tridiagonal finite-difference kinetic operator
//   - [Hamiltonian]: kinetic term plus a diagonal potential term
//   - [Wavefunction]: complex amplitudes at the grid points
//   - [Propagator]: action of exp(-iHτ) on a wavefunction
//   - [Observer], [Metric]: per-step hooks
//
// # Example
//
//	grid, _ := quantum.NewGrid(1.0, 500)
//	kin := quantum.NewKinetic(grid.Len(), 1.0, 1.0, grid.Dx())
//	h, _ := quantum.NewHamiltonian(kin, nil)
//	next, _ := propagators.NewKrylov().Propagate(h, psi, dt/hbar)
//
// # Immutability
//
// [Grid], [Kinetic] and [Hamiltonian] are values. Replacing the potential
// yields a new Hamiltonian through [Hamiltonian.WithPotential]; the kinetic
// term is carried over unchanged.
package quantum
