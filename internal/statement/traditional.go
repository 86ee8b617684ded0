package statement

import (
	"regexp"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

var traditionalLines = []linePattern{
	{
		label: "date_valuedate_desc_debit_credit_balance",
		re:    line(`(?P<date>DATE) (?:DATE )?(?P<desc>.+?) (?P<debit>MONEY|-) (?P<credit>MONEY|-) (?P<balance>SMONEY)`),
	},
	{
		label: "date_valuedate_desc_amount_balance",
		re:    line(`(?P<date>DATE) DATE (?P<desc>.+?) (?P<amount>SMONEY) (?P<balance>SMONEY)`),
	},
	{
		label: "date_desc_ref_amount_type",
		re:    line(`(?P<date>DATE) (?P<desc>.+?) (?P<ref>REF) (?P<amount>SMONEY) ?(?P<kind>KIND)`),
	},
	{
		label: "date_desc_amount_type",
		re:    line(`(?P<date>DATE) (?P<desc>.+?) (?P<amount>SMONEY) ?(?P<kind>KIND)`),
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

var traditionalFields = append([]fieldPattern{
	{field: fieldAccountNumber, patterns: []*regexp.Regexp{
		field(`(?i)account\s+(?:number|no\.?)\s*[:\-]?\s*(\d{10})\b`),
		field(`(?i)\bnuban\s*[:\-]?\s*(\d{10})\b`),
	}},
	{field: fieldBankName, patterns: []*regexp.Regexp{
		field(`(?i)\b((?:first|access|zenith|guaranty\s+trust|gt|united|union|fidelity|sterling|wema|polaris|keystone|ecobank|stanbic\s+ibtc|fcmb|heritage|unity|providus)\s*bank(?:\s+plc)?)`),
	}},
	{field: fieldAccountType, patterns: []*regexp.Regexp{
		field(`(?i)account\s+type\s*[:\-]?\s*(savings|current|domiciliary|corporate)`),
		field(`(?i)\b(savings|current)\s+account\b`),
	}},
}, commonFields...)

var traditionalCreditWords = []string{
	"received", "credit", "refund", "reversal", "deposit", "lodgement", "salary",
	"interest", "inflow", "transfer from", "dividend",
}

var traditionalDebitWords = []string{
	"sent", "paid", "payment", "withdrawal", "bill", "purchase", "transfer to",
	"cheque", "charge", "fee", "debit", "pos", "levy", "stamp duty", "maintenance",
}

// NewTraditionalParser returns the parser for conventional bank statements.
func NewTraditionalParser() *Parser {
	return &Parser{
		bankType:    domain.BankTraditional,
		fields:      traditionalFields,
		lines:       traditionalLines,
		creditWords: traditionalCreditWords,
		debitWords:  traditionalDebitWords,
		refs:        NewRefGenerator(PrefixTraditional),
	}
}
