package progression

// SetMetrics are the three candidate record values derived from one set.
type SetMetrics struct {
	OneRepMax float64
	Volume    float64
	Reps      int
}

// EstimateOneRepMax estimates the one-rep max via the Epley formula:
// weight * (1 + reps/30), with a single rep taken as-is.
func EstimateOneRepMax(weight float64, reps int) float64 {
	if reps == 1 {
		return weight
	}
	return weight * (1 + float64(reps)/30)
}

// EstimateSet derives the record candidates from a non-warmup set with
// weight and reps present and positive.
func EstimateSet(weight float64, reps int) SetMetrics {
	return SetMetrics{
		OneRepMax: EstimateOneRepMax(weight, reps),
		Volume:    weight * float64(reps),
		Reps:      reps,
	}
}
