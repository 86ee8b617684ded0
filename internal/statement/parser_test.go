package statement

import (
	"strings"
	"testing"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

const walletText = `OPay Wallet Statement
Account Name: JOHN ADEBAYO DOE
Phone Number: 08031234567
Statement Period: 01/01/2024 to 31/01/2024
Opening Balance: ₦10,000.00
Closing Balance: ₦17,500.00
Wallet Balance: ₦17,500.00
Total Debits: ₦5,500.00
Total Credits: ₦13,000.00

Trans. Time Description Amount Balance
2024-01-15 14:32:10 Transfer to John Smith -5,000.00 5,000.00
2024-01-15 14:32:10 Transfer to John Smith -5,000.00 5,000.00
2024-01-16 09:00 Received from Mary Jane +13,000.00 18,000.00
2024-01-17 Airtime Purchase 500.00 Successful
2024-01-18 Electricity Bill 2,000.00 Failed
2024-01-19 Cashback reward 50.00
2024-01-20 ok 100.00
2024-01-21 Zero value item 0.00
`

func TestWalletParser_Transactions(t *testing.T) {
	stmt := NewWalletParser().Parse(walletText)

	if stmt.BankType != domain.BankWallet {
		t.Errorf("BankType = %q, want wallet", stmt.BankType)
	}

	want := []struct {
		date, desc, amount, kind, time, category string
	}{
		{"2024-01-15", "Transfer to John Smith", "5000", "debit", "14:32:10", "Money Transfer"},
		{"2024-01-16", "Received from Mary Jane", "13000", "credit", "09:00:00", "Money Transfer"},
		{"2024-01-17", "Airtime Purchase", "500", "debit", "", "Airtime & Data"},
		{"2024-01-19", "Cashback reward", "50", "credit", "", "Rewards"},
	}

	if len(stmt.Transactions) != len(want) {
		for _, tx := range stmt.Transactions {
			t.Logf("got %s %s %s", tx.Date, tx.Description, tx.Amount)
		}
		t.Fatalf("got %d transactions, want %d", len(stmt.Transactions), len(want))
	}

	for i, w := range want {
		tx := stmt.Transactions[i]
		if tx.Date.String() != w.date {
			t.Errorf("[%d] date = %q, want %q", i, tx.Date, w.date)
		}
		if tx.Description.String() != w.desc {
			t.Errorf("[%d] description = %q, want %q", i, tx.Description, w.desc)
		}
		if tx.Amount.String() != w.amount {
			t.Errorf("[%d] amount = %q, want %q", i, tx.Amount, w.amount)
		}
		if tx.Type.String() != w.kind {
			t.Errorf("[%d] type = %q, want %q", i, tx.Type, w.kind)
		}
		if tx.Time.String() != w.time {
			t.Errorf("[%d] time = %q, want %q", i, tx.Time, w.time)
		}
		if tx.Category.String() != w.category {
			t.Errorf("[%d] category = %q, want %q", i, tx.Category, w.category)
		}
		if !strings.HasPrefix(tx.TransactionReference.String(), PrefixWallet+"-") {
			t.Errorf("[%d] reference = %q, want synthetic %s reference", i, tx.TransactionReference, PrefixWallet)
		}
	}

	if stmt.Transactions[0].BalanceAfter.String() != "5000" {
		t.Errorf("balance_after = %q, want 5000", stmt.Transactions[0].BalanceAfter)
	}
}

func TestWalletParser_AccountInfo(t *testing.T) {
	info := NewWalletParser().Parse(walletText).AccountInfo
	if info == nil {
		t.Fatal("expected account info")
	}

	checks := map[string]struct{ got, want string }{
		"account_name":    {info.AccountName.String(), "JOHN ADEBAYO DOE"},
		"account_number":  {info.AccountNumber.String(), "08031234567"},
		"bank_name":       {info.BankName.String(), "OPay"},
		"opening_balance": {info.OpeningBalance.String(), "10,000.00"},
		"closing_balance": {info.ClosingBalance.String(), "17,500.00"},
		"wallet_balance":  {info.WalletBalance.String(), "17,500.00"},
		"total_debits":    {info.TotalDebits.String(), "5,500.00"},
		"total_credits":   {info.TotalCredits.String(), "13,000.00"},
	}
	for name, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %q, want %q", name, c.got, c.want)
		}
	}

	if info.StatementPeriod == nil {
		t.Fatal("expected statement period")
	}
	if info.StatementPeriod.StartDate != "2024-01-01" || info.StatementPeriod.EndDate != "2024-01-31" {
		t.Errorf("period = %+v", *info.StatementPeriod)
	}
}

const traditionalText = `ZENITH BANK PLC
Account Name: ADA OKAFOR
Account Number: 1012345678
Account Type: Savings
Period: 01-Jan-2024 to 31-Jan-2024
Opening Balance: 100,000.00
Closing Balance: 345,000.00

Date Value Date Narration Debit Credit Balance
15-Jan-2024 15-Jan-2024 NIP TRF TO JOHN DOE 5,000.00 - 95,000.00
25-Jan-2024 25-Jan-2024 SALARY JANUARY ACME LTD - 250,000.00 345,000.00
26-Jan-2024 POS PURCHASE SHOPRITE FT24026ABC123 3,000.00 DR
27/01/2024 REFUND FROM JUMIA 1,500.00CR
28/01/2024 SMS ALERT CHARGES 52.50
`

func TestTraditionalParser(t *testing.T) {
	stmt := NewTraditionalParser().Parse(traditionalText)

	if stmt.BankType != domain.BankTraditional {
		t.Errorf("BankType = %q, want traditional", stmt.BankType)
	}

	want := []struct {
		date, desc, amount, kind, ref string
	}{
		{"2024-01-15", "NIP TRF TO JOHN DOE", "5000", "debit", ""},
		{"2024-01-25", "SALARY JANUARY ACME LTD", "250000", "credit", ""},
		{"2024-01-26", "POS PURCHASE SHOPRITE", "3000", "debit", "FT24026ABC123"},
		{"2024-01-27", "REFUND FROM JUMIA", "1500", "credit", ""},
		{"2024-01-28", "SMS ALERT CHARGES", "52.5", "debit", ""},
	}

	if len(stmt.Transactions) != len(want) {
		for _, tx := range stmt.Transactions {
			t.Logf("got %s | %s | %s", tx.Date, tx.Description, tx.Amount)
		}
		t.Fatalf("got %d transactions, want %d", len(stmt.Transactions), len(want))
	}

	for i, w := range want {
		tx := stmt.Transactions[i]
		if tx.Date.String() != w.date || tx.Description.String() != w.desc ||
			tx.Amount.String() != w.amount || tx.Type.String() != w.kind {
			t.Errorf("[%d] got {%s %q %s %s}, want {%s %q %s %s}", i,
				tx.Date, tx.Description, tx.Amount, tx.Type, w.date, w.desc, w.amount, w.kind)
		}
		if w.ref != "" && tx.TransactionReference.String() != w.ref {
			t.Errorf("[%d] reference = %q, want %q", i, tx.TransactionReference, w.ref)
		}
		if w.ref == "" && !strings.HasPrefix(tx.TransactionReference.String(), PrefixTraditional+"-") {
			t.Errorf("[%d] reference = %q, want synthetic", i, tx.TransactionReference)
		}
	}

	info := stmt.AccountInfo
	if info == nil {
		t.Fatal("expected account info")
	}
	if info.AccountNumber != "1012345678" {
		t.Errorf("account_number = %q", info.AccountNumber)
	}
	if !strings.EqualFold(info.BankName.String(), "ZENITH BANK PLC") {
		t.Errorf("bank_name = %q", info.BankName)
	}
	if info.AccountType != "Savings" {
		t.Errorf("account_type = %q", info.AccountType)
	}
	if info.StatementPeriod == nil || info.StatementPeriod.StartDate != "2024-01-01" {
		t.Errorf("period = %+v", info.StatementPeriod)
	}
}

func TestParser_AmountThenBalance(t *testing.T) {
	tests := []struct {
		name   string
		parser *Parser
		text   string
		want   []struct{ desc, amount, kind, balance string }
	}{
		{
			name:   "traditional",
			parser: NewTraditionalParser(),
			text: "15/01/2024 POS PURCHASE SHOPRITE 5,000.00 95,000.00\n" +
				"25/01/2024 SALARY JANUARY 250,000.00 345,000.00\n",
			want: []struct{ desc, amount, kind, balance string }{
				{"POS PURCHASE SHOPRITE", "5000", "debit", "95000"},
				{"SALARY JANUARY", "250000", "credit", "345000"},
			},
		},
		{
			name:   "wallet",
			parser: NewWalletParser(),
			text: "2024-01-15 Transfer to John Smith -5,000.00 95,000.00\n" +
				"2024-01-16 Received from Mary Jane 250,000.00 345,000.00\n",
			want: []struct{ desc, amount, kind, balance string }{
				{"Transfer to John Smith", "5000", "debit", "95000"},
				{"Received from Mary Jane", "250000", "credit", "345000"},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := tt.parser.Parse(tt.text)
			if len(stmt.Transactions) != len(tt.want) {
				t.Fatalf("got %d transactions, want %d", len(stmt.Transactions), len(tt.want))
			}
			for i, w := range tt.want {
				tx := stmt.Transactions[i]
				if tx.Description.String() != w.desc || tx.Amount.String() != w.amount ||
					tx.Type.String() != w.kind || tx.BalanceAfter.String() != w.balance {
					t.Errorf("[%d] got {%q %s %s %s}, want {%q %s %s %s}", i,
						tx.Description, tx.Amount, tx.Type, tx.BalanceAfter,
						w.desc, w.amount, w.kind, w.balance)
				}
			}
		})
	}
}

func TestParser_RejectsAmountInDescription(t *testing.T) {
	stmt := NewWalletParser().Parse("2024-01-15 Transfer 1,000.00 2,000.00 3,000.00\n")
	if len(stmt.Transactions) != 0 {
		t.Errorf("got %+v, want no transactions", stmt.Transactions)
	}
}

func TestParser_NoMatchesNoAccountInfo(t *testing.T) {
	stmt := NewWalletParser().Parse("lorem ipsum dolor sit amet")
	if len(stmt.Transactions) != 0 {
		t.Errorf("expected no transactions, got %d", len(stmt.Transactions))
	}
	if stmt.AccountInfo != nil {
		t.Errorf("expected nil account info, got %+v", stmt.AccountInfo)
	}
}

func TestParser_ImplementsInterface(t *testing.T) {
	var _ TransactionLineParser = NewWalletParser()
	var _ TransactionLineParser = NewTraditionalParser()
}
