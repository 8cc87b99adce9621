// Package analysis derives physical quantities from wavefunctions and
// Hamiltonians after (or during) a run.
//
//   - [Momentum]: momentum-space probability density via FFT
//   - [Transmission] and [Reflection]: probability on either side of a cut
//   - [Moments]: mean position and packet width
//   - [EnergyLevels]: lowest eigenvalues of the discrete Hamiltonian
//   - [InfiniteWellLevels]: analytic n²π²ħ²/(2mL²) reference levels
//
// # Tunneling
//
// After a packet has hit a barrier centred at c, the transmitted fraction is
//
//	T := analysis.Transmission(psi, grid, c)
//
// Every function here is read-only with respect to its inputs.
package analysis
