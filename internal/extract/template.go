package extract

import (
	"github.com/dvloznov/statement-ingest/internal/domain"
)

// Template returns a fillable JSON upload document for bankType. It is
// offered to users whose PDF could not be read. Unknown types get the wallet
// layout.
func Template(bankType domain.BankType) domain.RawStatement {
	if bankType == domain.BankTraditional {
		return domain.RawStatement{
			BankType: domain.BankTraditional,
			AccountInfo: &domain.RawAccountInfo{
				AccountName:   "Your Name",
				AccountNumber: "0123456789",
				BankName:      "Your Bank",
				AccountType:   "Savings",
				Currency:      domain.DefaultCurrency,
				StatementPeriod: &domain.StatementPeriod{
					StartDate: "2024-01-01",
					EndDate:   "2024-01-31",
				},
				OpeningBalance: "100000.00",
				ClosingBalance: "345000.00",
				TotalDebits:    "5000.00",
				TotalCredits:   "250000.00",
			},
			Transactions: []domain.RawTransaction{
				{
					Date:                 "2024-01-15",
					Description:          "NIP TRF TO JOHN DOE",
					Type:                 "debit",
					Amount:               "5000.00",
					BalanceAfter:         "95000.00",
					Category:             "Money Transfer",
					TransactionReference: "FT24015ABC123",
				},
				{
					Date:         "2024-01-25",
					Description:  "SALARY JANUARY",
					Type:         "credit",
					Amount:       "250000.00",
					BalanceAfter: "345000.00",
					Category:     "Salary",
				},
			},
		}
	}

	return domain.RawStatement{
		BankType: domain.BankWallet,
		AccountInfo: &domain.RawAccountInfo{
			AccountName:   "Your Name",
			AccountNumber: "08012345678",
			BankName:      "OPay",
			AccountType:   "Wallet",
			Currency:      domain.DefaultCurrency,
			StatementPeriod: &domain.StatementPeriod{
				StartDate: "2024-01-01",
				EndDate:   "2024-01-31",
			},
			OpeningBalance: "10000.00",
			ClosingBalance: "17500.00",
			WalletBalance:  "17500.00",
			TotalDebits:    "5500.00",
			TotalCredits:   "13000.00",
		},
		Transactions: []domain.RawTransaction{
			{
				Date:         "2024-01-15",
				Time:         "14:32:10",
				Description:  "Transfer to John Smith",
				Type:         "debit",
				Amount:       "5000.00",
				BalanceAfter: "5000.00",
				Category:     "Money Transfer",
				Channel:      "OPay Wallet",
			},
			{
				Date:         "2024-01-16",
				Time:         "09:00:00",
				Description:  "Received from Mary Jane",
				Type:         "credit",
				Amount:       "13000.00",
				BalanceAfter: "18000.00",
				Category:     "Money Transfer",
				Channel:      "OPay Wallet",
			},
		},
	}
}
