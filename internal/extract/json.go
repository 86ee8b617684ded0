package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

// JSONExtractor reads the structured upload document:
//
//	{"bankType": "...", "accountInfo": {...}, "transactions": [...]}
//
// Either top-level key may be missing, but not both.
type JSONExtractor struct{}

func NewJSONExtractor() *JSONExtractor {
	return &JSONExtractor{}
}

func (x *JSONExtractor) Extract(ctx context.Context, data []byte, filename string) (*domain.RawStatement, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, domain.MalformedInputError(domain.FormatJSON, err.Error(), err)
	}

	rawTxs, hasTxs := doc["transactions"]
	rawInfo, hasInfo := doc["accountInfo"]
	if !hasTxs && !hasInfo {
		return nil, domain.ValidationError(domain.FormatJSON,
			`JSON must contain a "transactions" array or an "accountInfo" object`)
	}

	stmt := &domain.RawStatement{Source: domain.SourceUpload}

	if hasTxs && !isJSONNull(rawTxs) {
		if err := json.Unmarshal(rawTxs, &stmt.Transactions); err != nil {
			return nil, domain.MalformedInputError(domain.FormatJSON,
				fmt.Sprintf("transactions: %v", err), err)
		}
	}

	if hasInfo && !isJSONNull(rawInfo) {
		var info domain.RawAccountInfo
		if err := json.Unmarshal(rawInfo, &info); err != nil {
			return nil, domain.MalformedInputError(domain.FormatJSON,
				fmt.Sprintf("accountInfo: %v", err), err)
		}
		stmt.AccountInfo = &info
	}

	stmt.BankType = jsonBankType(doc["bankType"], stmt.AccountInfo, filename)
	return stmt, nil
}

// jsonBankType honours an explicit bankType, otherwise looks for the wallet
// brand in the filename or the declared bank name.
func jsonBankType(raw json.RawMessage, info *domain.RawAccountInfo, filename string) domain.BankType {
	if len(raw) > 0 {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if bt, ok := domain.ParseBankType(s); ok {
				return bt
			}
		}
	}
	if mentionsWalletBrand(filename) {
		return domain.BankWallet
	}
	if info != nil && mentionsWalletBrand(info.BankName.String()) {
		return domain.BankWallet
	}
	return domain.BankTraditional
}

func isJSONNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
