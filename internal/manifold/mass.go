package manifold

import "math"

// IDF returns the inverse document frequency weight for a word that
// appears in df documents out of docCount total: ln((1+N)/(1+df)) + 1.
// Rarer words (lower df) get a larger weight, giving them more geometric
// influence during drift and interference.
func IDF(docCount, df uint32) float64 {
	return math.Log((1+float64(docCount))/(1+float64(df))) + 1
}

// RenormalizeMass returns a new mass table summing to TotalMassTarget,
// proportional to activationCounts[i]+1 for ids[i]. When every activation
// count is zero the result is exactly uniform. The returned map is keyed
// by occurrence id.
func RenormalizeMass(ids []string, activationCounts []uint32) map[string]float64 {
	masses := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return masses
	}
	var total float64
	weights := make([]float64, len(ids))
	for i, c := range activationCounts {
		w := float64(c) + 1
		weights[i] = w
		total += w
	}
	for i, id := range ids {
		masses[id] = (weights[i] / total) * TotalMassTarget
	}
	return masses
}
