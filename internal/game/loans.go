package game

import (
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/talgya/astral-district/internal/balance"
	"github.com/talgya/astral-district/internal/player"
)

// LoanLimit is the most a player of level may owe in principal at once.
func LoanLimit(level int) int {
	return balance.LoanLimitPerLevel * level
}

// TakeLoan borrows amount at a flat interest rate, due after the loan
// term. Refused when it would exceed the player's limit.
func (s *Service) TakeLoan(amount int) (player.Loan, bool) {
	var loan player.Loan
	ok := s.mutate("bank", func(st *player.State) (bool, string) {
		if amount <= 0 {
			return false, ""
		}
		outstanding := 0
		for _, l := range st.Loans {
			outstanding += l.Principal
		}
		if outstanding+amount > LoanLimit(st.Level) {
			return false, ""
		}
		now := s.clk.Now()
		loan = player.Loan{
			ID:        uuid.NewString(),
			Principal: amount,
			Owed:      amount + amount*balance.LoanInterestPercent/100,
			TakenAt:   now,
			DueAt:     now.Add(balance.LoanTerm),
		}
		st.Loans = append(st.Loans, loan)
		st.Money += amount
		return true, fmt.Sprintf("%s borrowed %s", st.Name, money(amount))
	})
	return loan, ok
}

// RepayLoan settles a loan in full.
func (s *Service) RepayLoan(id string) bool {
	return s.mutate("bank", func(st *player.State) (bool, string) {
		i := slices.IndexFunc(st.Loans, func(l player.Loan) bool { return l.ID == id })
		if i < 0 || st.Money < st.Loans[i].Owed {
			return false, ""
		}
		owed := st.Loans[i].Owed
		st.Money -= owed
		st.Loans = slices.Delete(st.Loans, i, i+1)
		return true, fmt.Sprintf("%s repaid %s", st.Name, money(owed))
	})
}
