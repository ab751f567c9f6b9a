// Package compose turns a LayerStack into an EffectiveCascade.
//
// Composition is all-or-nothing. The engine checks every (layer, rule) pair
// against the rule catalog and looks for same-tier conflicts, collecting
// every problem it finds:
//
//   - rules unknown to the catalog, reported once per rule with every layer
//     that references them and the nearest known id
//   - settings that fail validation, with a path and message per violation
//   - rules defined by two or more layers that share a tier
//
// If anything was found the engine returns the full *diag.Diagnostics and no
// cascade. Otherwise it builds the cascade, which takes the next generation
// number.
//
//	engine := compose.NewEngine(registry, nil)
//	c, err := engine.Compose(st)
//	var diags *diag.Diagnostics
//	if errors.As(err, &diags) {
//		for _, d := range diags.Items() {
//			fmt.Println(d)
//		}
//	}
package compose
