// Package propagators implements the time-evolution operator exp(-i·H·τ)
// applied directly to a wavefunction.
//
// Three interchangeable algorithms satisfy [quantum.Propagator]:
//
//   - [Krylov]: Lanczos projection onto a small Krylov subspace (default)
//   - [Eigen]: full diagonalization of H, cached between steps
//   - [CrankNicolson]: Cayley form of the (1,1) Padé approximant
//
// None of them forms the dense exponential of H. All are unitary up to
// floating-point error, so ∑|ψ|²·dx is conserved across steps.
//
// Propagators keep scratch buffers and are not safe for concurrent use;
// give each simulator its own instance.
package propagators
