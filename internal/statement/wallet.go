package statement

import (
	"regexp"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

var walletLines = []linePattern{
	{
		label: "date_time_desc_amount_balance",
		re:    line(`(?P<date>DATE),? (?P<time>TIME) (?P<desc>.+?) (?P<amount>SMONEY) (?P<balance>MONEY)`),
	},
	{
		label: "date_desc_ref_amount_type",
		re:    line(`(?P<date>DATE) (?P<desc>.+?) (?P<ref>REF) (?P<amount>SMONEY) (?P<kind>KIND)`),
	},
	{
		label: "date_desc_amount_status",
		re:    line(`(?P<date>DATE) (?P<desc>.+?) (?P<amount>SMONEY) (?P<status>STATUS)`),
	},
	{
		label: "date_desc_amount_balance",
		re:    line(`(?P<date>DATE) (?P<desc>.+?) (?P<amount>SMONEY) (?P<balance>SMONEY)`),
	},
	{
		label: "date_desc_amount",
		re:    line(`(?P<date>DATE) (?P<desc>.+?) (?P<amount>LMONEY)`),
	},
}

var walletFields = append([]fieldPattern{
	{field: fieldAccountNumber, patterns: []*regexp.Regexp{
		field(`(?i)(?:wallet\s+(?:number|id)|phone(?:\s+(?:number|no\.?))?|mobile(?:\s+number)?)\s*[:\-]?\s*(\+?\d[\d ]{8,14}\d)`),
		field(`(?i)account\s+(?:number|no\.?)\s*[:\-]?\s*(\+?\d[\d ]{8,14}\d)`),
	}},
	{field: fieldBankName, patterns: []*regexp.Regexp{
		field(`(?i)\b(opay|palmpay|kuda|moniepoint|paga)\b`),
	}},
	{field: fieldWalletBalance, patterns: []*regexp.Regexp{
		field(`(?i)(?:wallet|available)\s+balance\s*[:\-]?\s*AMOUNT`),
		field(`(?i)current\s+balance\s*[:\-]?\s*AMOUNT`),
	}},
}, commonFields...)

var walletCreditWords = []string{
	"received", "credit", "refund", "cashback", "cash back", "reversal", "reversed",
	"deposit", "funding", "top up", "top-up", "transfer from", "bonus", "interest",
}

var walletDebitWords = []string{
	"sent", "paid", "payment", "withdrawal", "bill", "purchase", "transfer to",
	"airtime", "data", "fee", "charge", "debit", "pos", "levy", "stamp duty",
}

// NewWalletParser returns the parser for mobile-money and wallet statements.
func NewWalletParser() *Parser {
	return &Parser{
		bankType:    domain.BankWallet,
		fields:      walletFields,
		lines:       walletLines,
		creditWords: walletCreditWords,
		debitWords:  walletDebitWords,
		refs:        NewRefGenerator(PrefixWallet),
	}
}
