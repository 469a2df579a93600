package core

// Totals is the derived running-sum view over an owner's complete record set.
// Balance may be negative; the totals themselves never are.
type Totals struct {
	TotalIncome  Money
	TotalExpense Money
	Balance      Money
}

// Summarize recomputes the totals over a full snapshot. Every push replaces
// the previous result wholesale, so there is no drift to accumulate.
func Summarize(records []Transaction) Totals {
	var income, expense int64
	for _, t := range records {
		switch t.Kind {
		case Income:
			income += t.Amount.Cents
		case Expense:
			expense += t.Amount.Cents
		}
	}
	return Totals{
		TotalIncome:  Money{Cents: income},
		TotalExpense: Money{Cents: expense},
		Balance:      Money{Cents: income - expense},
	}
}
