package scheduling

import "clinic-booking-server/internal/models"

// ComputeTotal derives the total charge from the consultation base rate and
// the additive adjustment. No rounding or currency conversion happens here;
// currency is stored but not interpreted.
func ComputeTotal(consultation, additional float64) float64 {
	return consultation + additional
}

// NewFee builds the fee for a fresh booking from the doctor's consultation
// rate. The model's BeforeSave hook re-derives Total on every subsequent
// persist, so the invariant holds even when Additional changes later.
func NewFee(consultationFee float64) models.Fee {
	return models.Fee{
		Consultation: consultationFee,
		Additional:   0,
		Total:        ComputeTotal(consultationFee, 0),
		Currency:     "USD",
	}
}
