package riskengine

import (
	"math"

	"github.com/meridianbank/corebank/internal/domain/shared"
	"github.com/meridianbank/corebank/internal/domain/transaction"
)

// featureCount is the dimensionality of the detector's input vectors
const featureCount = 5

// featureVector maps one transaction onto the detector's feature space:
// log(amount+1), direction bit, hour-of-day fraction, counterparty-present
// bit, memo length.
func featureVector(txn *transaction.Transaction) []float64 {
	amount, _ := txn.Amount.Float64()

	var direction float64
	if txn.Direction == shared.DirectionDebit {
		direction = 1
	}

	created := txn.CreatedAt.UTC()
	secondsOfDay := float64(created.Hour()*3600 + created.Minute()*60 + created.Second())

	var counterparty float64
	if txn.CounterpartyAccountID != nil {
		counterparty = 1
	}

	return []float64{
		math.Log1p(amount),
		direction,
		secondsOfDay / 86400.0,
		counterparty,
		float64(len(txn.Memo)),
	}
}

// featureMatrix maps a transaction window onto detector input, most recent
// transaction first (matching ListRecentByAccount order)
func featureMatrix(txns []*transaction.Transaction) [][]float64 {
	samples := make([][]float64, len(txns))
	for i, txn := range txns {
		samples[i] = featureVector(txn)
	}
	return samples
}
