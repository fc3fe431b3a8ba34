package learning

// EpochStats summarises one pass over the claims.
type EpochStats struct {
	Epoch    int     `json:"epoch"`
	Effort   float64 `json:"effort"`
	Applied  int     `json:"applied"`
	Skipped  int     `json:"skipped"`
	Residual float64 `json:"residual"`
}

type Report struct {
	Epochs []EpochStats `json:"epochs"`
}

func (r Report) Applied() int {
	total := 0
	for _, e := range r.Epochs {
		total += e.Applied
	}
	return total
}

func (r Report) Skipped() int {
	total := 0
	for _, e := range r.Epochs {
		total += e.Skipped
	}
	return total
}

// FinalResidual is the residual after the last epoch, or 0 for an empty
// report.
func (r Report) FinalResidual() float64 {
	if len(r.Epochs) == 0 {
		return 0
	}
	return r.Epochs[len(r.Epochs)-1].Residual
}
