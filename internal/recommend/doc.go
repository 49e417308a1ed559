// Package recommend turns weather and production readings into operating
// parameter recommendations through an ordered rule chain: moisture,
// precipitation, temperature, efficiency, then safety. Later rules may
// escalate but never downgrade the alert level, and the safety rule has the
// final word on halting production.
//
// Evaluation never fails: a panic in any rule is recovered into a
// conservative fallback recommendation at default parameters.
package recommend
