// Package layout turns a diagram description into an optimizable state and
// drives it toward a minimum-energy configuration.
//
// The package defines:
//
//   - [Description]: the external shape list and term selection ([Decode])
//   - [State]: shapes, the flat varying vector and convergence bookkeeping ([New])
//   - [Energy]: the compiled energy of a state ([EvalEnergyOn])
//   - [StepState] and [StepUntilConvergence]: the stepping driver
//
// # Example
//
//	desc, _ := layout.DecodeFile("venn.json")
//	st, _ := layout.New(desc, layout.DefaultOptions())
//	st, err := layout.StepUntilConvergence(ctx, st)
//	if layout.IsWarning(err) {
//	    // ceiling reached, st is still usable
//	}
//
// # Thread Safety
//
// A State is NOT safe for concurrent use. Callers must keep at most one
// step or run in flight per State.
package layout
