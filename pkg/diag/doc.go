// Package diag defines the structured reports produced while building a
// layer stack and composing it into a cascade.
//
// Every report implements Diagnostic, an error with a Kind:
//
//   - KindStack: a malformed stack (empty or duplicate layer name, negative
//     tier, bad glob, duplicate tier/order pair)
//   - KindUnknownRule: a layer references a rule id absent from the catalog
//   - KindValidation: a setting violates its rule schema
//   - KindConflict: two layers in one tier define the same rule
//
// Reports are collected into a Diagnostics list rather than returned one at a
// time, so a single call surfaces every defect:
//
//	var diags *diag.Diagnostics
//	if errors.As(err, &diags) {
//	    for _, d := range diags.ByKind(diag.KindConflict) {
//	        fmt.Println(d)
//	    }
//	}
package diag
