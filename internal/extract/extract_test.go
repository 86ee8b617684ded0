package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/domain"
)

// mockTextExtractor is a mock implementation of TextExtractor.
type mockTextExtractor struct {
	ExtractTextFunc func(ctx context.Context, data []byte) (string, error)
	calls           int
}

func (m *mockTextExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	m.calls++
	if m.ExtractTextFunc != nil {
		return m.ExtractTextFunc(ctx, data)
	}
	return "", nil
}

func kindOf(t *testing.T, err error) domain.ErrorKind {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	return domain.KindOf(err)
}

func TestRegistry_For(t *testing.T) {
	jsonX, csvX, pdfX := NewJSONExtractor(), NewCSVExtractor(), NewPDFExtractor(UnavailableTextExtractor{}, zerolog.Nop())
	reg := NewRegistry(jsonX, csvX, pdfX)

	tests := []struct {
		filename string
		format   domain.FileFormat
		wantErr  bool
	}{
		{"statement.json", domain.FormatJSON, false},
		{"export.CSV", domain.FormatCSV, false},
		{"OPay_Jan.Pdf", domain.FormatPDF, false},
		{"notes.txt", "", true},
		{"no-extension", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			x, format, err := reg.For(tt.filename)
			if tt.wantErr {
				if got := kindOf(t, err); got != domain.KindUnsupportedFormat {
					t.Errorf("kind = %q, want unsupported_format", got)
				}
				if domain.StatusCode(err) != 400 {
					t.Errorf("status = %d, want 400", domain.StatusCode(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if format != tt.format || x == nil {
				t.Errorf("For(%q) = %v, %q", tt.filename, x, format)
			}
		})
	}
}

func TestJSONExtractor(t *testing.T) {
	ctx := context.Background()
	x := NewJSONExtractor()

	t.Run("explicit bank type and numeric amounts", func(t *testing.T) {
		data := []byte(`{
			"bankType": "wallet",
			"accountInfo": {"account_name": "Jane", "opening_balance": 1000},
			"transactions": [
				{"date": "2024-01-15", "description": "Airtime", "type": "debit", "amount": 5000},
				{"date": "2024-01-16", "description": "Salary", "type": "credit", "amount": "250,000.00"}
			]
		}`)
		stmt, err := x.Extract(ctx, data, "statement.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stmt.BankType != domain.BankWallet {
			t.Errorf("BankType = %q, want wallet", stmt.BankType)
		}
		if len(stmt.Transactions) != 2 {
			t.Fatalf("got %d transactions, want 2", len(stmt.Transactions))
		}
		if stmt.Transactions[0].Amount != "5000" || stmt.Transactions[1].Amount != "250,000.00" {
			t.Errorf("amounts = %q, %q", stmt.Transactions[0].Amount, stmt.Transactions[1].Amount)
		}
		if stmt.AccountInfo == nil || stmt.AccountInfo.OpeningBalance != "1000" {
			t.Errorf("account info = %+v", stmt.AccountInfo)
		}
		if stmt.Source != domain.SourceUpload {
			t.Errorf("Source = %q, want upload", stmt.Source)
		}
	})

	t.Run("account info only", func(t *testing.T) {
		stmt, err := x.Extract(ctx, []byte(`{"accountInfo": {"bank_name": "Zenith"}}`), "a.json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stmt.Transactions) != 0 || stmt.AccountInfo == nil {
			t.Errorf("unexpected statement %+v", stmt)
		}
		if stmt.BankType != domain.BankTraditional {
			t.Errorf("BankType = %q, want traditional", stmt.BankType)
		}
	})

	inference := []struct {
		name     string
		data     string
		filename string
		want     domain.BankType
	}{
		{"brand in filename", `{"transactions": []}`, "OPay-statement.json", domain.BankWallet},
		{"brand in bank name", `{"accountInfo": {"bank_name": "OPay Digital Services"}}`, "s.json", domain.BankWallet},
		{"no brand", `{"transactions": []}`, "gtbank.json", domain.BankTraditional},
		{"unknown explicit falls back", `{"bankType": "crypto", "transactions": []}`, "opay.json", domain.BankWallet},
	}
	for _, tt := range inference {
		t.Run(tt.name, func(t *testing.T) {
			stmt, err := x.Extract(ctx, []byte(tt.data), tt.filename)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if stmt.BankType != tt.want {
				t.Errorf("BankType = %q, want %q", stmt.BankType, tt.want)
			}
		})
	}

	failures := []struct {
		name string
		data string
		want domain.ErrorKind
	}{
		{"syntax error", `{"transactions": [`, domain.KindMalformedInput},
		{"top level array", `[{"date": "2024-01-15"}]`, domain.KindMalformedInput},
		{"neither key", `{"foo": 1}`, domain.KindValidation},
		{"transactions not an array", `{"transactions": {"date": "x"}}`, domain.KindMalformedInput},
		{"object amount", `{"transactions": [{"amount": {"value": 1}}]}`, domain.KindMalformedInput},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := x.Extract(ctx, []byte(tt.data), "s.json")
			if got := kindOf(t, err); got != tt.want {
				t.Errorf("kind = %q, want %q (%v)", got, tt.want, err)
			}
		})
	}
}

func TestCSVExtractor(t *testing.T) {
	ctx := context.Background()
	x := NewCSVExtractor()

	t.Run("classifies and normalizes rows", func(t *testing.T) {
		data := []byte("Date,Description,Amount,Type,Balance\n" +
			"2024-01-15,Jumia Purchase,\"₦12,500.00\",Debit,\"87,500.00\"\n" +
			"16/01/2024,Salary January,250000,CR,337500\n" +
			"17/01/2024,Short row\n" +
			"not a date,Something,100,Debit,0\n" +
			"2024-01-18,Zero amount,0,Debit,0\n" +
			"2024-01-19,Garbage amount,abc,Debit,0\n")

		stmt, err := x.Extract(ctx, data, "gtbank.csv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stmt.BankType != domain.BankTraditional {
			t.Errorf("BankType = %q, want traditional", stmt.BankType)
		}
		if len(stmt.Transactions) != 2 {
			t.Fatalf("got %d transactions, want 2: %+v", len(stmt.Transactions), stmt.Transactions)
		}

		first := stmt.Transactions[0]
		if first.Category != "Shopping" || first.Amount != "12500" || first.Type != "debit" {
			t.Errorf("first = %+v", first)
		}
		if first.BalanceAfter != "87500" {
			t.Errorf("balance = %q, want 87500", first.BalanceAfter)
		}

		second := stmt.Transactions[1]
		if second.Date != "2024-01-16" || second.Type != "credit" || second.Category != "Salary" {
			t.Errorf("second = %+v", second)
		}
	})

	t.Run("explicit category and reference columns", func(t *testing.T) {
		data := []byte("Transaction Date,Narration,Amount,Transaction Type,Category,Reference\n" +
			"2024-02-01,Lunch at office,3500,debit,Food & Dining,REF001\n")
		stmt, err := x.Extract(ctx, data, "export.csv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		tx := stmt.Transactions[0]
		if tx.Category != "Food & Dining" || tx.TransactionReference != "REF001" {
			t.Errorf("tx = %+v", tx)
		}
	})

	t.Run("split debit and credit columns", func(t *testing.T) {
		data := []byte("Date,Details,Debit,Credit\n" +
			"2024-03-01,POS purchase Shoprite,4000,\n" +
			"2024-03-02,Refund from merchant,,1500\n")
		stmt, err := x.Extract(ctx, data, "x.csv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stmt.Transactions) != 2 {
			t.Fatalf("got %d transactions, want 2", len(stmt.Transactions))
		}
		if stmt.Transactions[0].Type != "debit" || stmt.Transactions[1].Type != "credit" {
			t.Errorf("types = %q, %q", stmt.Transactions[0].Type, stmt.Transactions[1].Type)
		}
	})

	t.Run("split columns named with amount", func(t *testing.T) {
		data := []byte("Date,Narration,Debit Amount,Credit Amount,Balance\n" +
			"2024-03-01,POS purchase Shoprite,4000.00,,96000.00\n" +
			"2024-03-02,Salary January,,250000.00,346000.00\n")
		stmt, err := x.Extract(ctx, data, "x.csv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(stmt.Transactions) != 2 {
			t.Fatalf("got %d transactions, want 2", len(stmt.Transactions))
		}
		debit, credit := stmt.Transactions[0], stmt.Transactions[1]
		if debit.Type != "debit" || debit.Amount != "4000" {
			t.Errorf("debit = %s %s", debit.Type, debit.Amount)
		}
		if credit.Type != "credit" || credit.Amount != "250000" || credit.BalanceAfter != "346000" {
			t.Errorf("credit = %s %s %s", credit.Type, credit.Amount, credit.BalanceAfter)
		}
	})

	t.Run("combined credit/debit amount column", func(t *testing.T) {
		cols := indexColumns([]string{"Date", "Description", "Credit/Debit Amount", "Dr/Cr"})
		if cols.amount != 2 || cols.kind != 3 || cols.debit != -1 || cols.credit != -1 {
			t.Errorf("columns = %+v", cols)
		}
	})

	t.Run("wallet brand in content", func(t *testing.T) {
		data := []byte("Date,Description,Amount,Type\n2024-01-15,OPay transfer to Ade,100,debit\n")
		stmt, err := x.Extract(ctx, data, "statement.csv")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stmt.BankType != domain.BankWallet {
			t.Errorf("BankType = %q, want wallet", stmt.BankType)
		}
	})

	failures := []struct {
		name string
		data string
		want domain.ErrorKind
	}{
		{"header only", "Date,Description,Amount\n", domain.KindMalformedInput},
		{"empty", "", domain.KindMalformedInput},
		{"missing columns", "Foo,Bar\n1,2\n", domain.KindMalformedInput},
		{"no usable rows", "Date,Description,Amount\nbad,row,x\n", domain.KindEmptyContent},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			_, err := x.Extract(ctx, []byte(tt.data), "s.csv")
			if got := kindOf(t, err); got != tt.want {
				t.Errorf("kind = %q, want %q (%v)", got, tt.want, err)
			}
		})
	}
}

const walletPDFText = `OPay Wallet Statement
Account Name: JOHN DOE
Wallet Balance: 17,500.00
2024-01-15 14:32:10 Transfer to John Smith -5,000.00 5,000.00
2024-01-16 09:00 Received from Mary Jane +13,000.00 18,000.00
`

func TestPDFExtractor(t *testing.T) {
	ctx := context.Background()
	pdfBytes := []byte("%PDF-1.7\n...")

	t.Run("rejects bad magic without extracting", func(t *testing.T) {
		text := &mockTextExtractor{}
		x := NewPDFExtractor(text, zerolog.Nop())
		_, err := x.Extract(ctx, []byte("hello world"), "fake.pdf")
		if got := kindOf(t, err); got != domain.KindInvalidFile {
			t.Errorf("kind = %q, want invalid_file", got)
		}
		if text.calls != 0 {
			t.Errorf("text extractor called %d times, want 0", text.calls)
		}
	})

	cases := []struct {
		name string
		fn   func(ctx context.Context, data []byte) (string, error)
		want domain.ErrorKind
	}{
		{
			name: "extractor unavailable",
			fn: func(ctx context.Context, data []byte) (string, error) {
				return "", ErrTextExtractorUnavailable
			},
			want: domain.KindServiceUnavailable,
		},
		{
			name: "extractor failure",
			fn: func(ctx context.Context, data []byte) (string, error) {
				return "", errors.New("broken xref table")
			},
			want: domain.KindEmptyContent,
		},
		{
			name: "scanned pdf",
			fn: func(ctx context.Context, data []byte) (string, error) {
				return "   page 1   ", nil
			},
			want: domain.KindEmptyContent,
		},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			x := NewPDFExtractor(&mockTextExtractor{ExtractTextFunc: tt.fn}, zerolog.Nop())
			_, err := x.Extract(ctx, pdfBytes, "s.pdf")
			if got := kindOf(t, err); got != tt.want {
				t.Errorf("kind = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("scanned pdf keeps detected bank type", func(t *testing.T) {
		text := &mockTextExtractor{ExtractTextFunc: func(ctx context.Context, data []byte) (string, error) {
			return "ZENITH BANK PLC 1012345678", nil
		}}
		_, err := NewPDFExtractor(text, zerolog.Nop()).Extract(ctx, pdfBytes, "s.pdf")
		de, ok := domain.AsError(err)
		if !ok || de.Kind != domain.KindEmptyContent {
			t.Fatalf("err = %v, want empty_content", err)
		}
		if de.BankType != domain.BankTraditional {
			t.Errorf("BankType = %q, want traditional", de.BankType)
		}
	})

	t.Run("parses wallet text", func(t *testing.T) {
		text := &mockTextExtractor{ExtractTextFunc: func(ctx context.Context, data []byte) (string, error) {
			return walletPDFText, nil
		}}
		stmt, err := NewPDFExtractor(text, zerolog.Nop()).Extract(ctx, pdfBytes, "s.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stmt.BankType != domain.BankWallet {
			t.Errorf("BankType = %q, want wallet", stmt.BankType)
		}
		if len(stmt.Transactions) != 2 {
			t.Fatalf("got %d transactions, want 2", len(stmt.Transactions))
		}
		if stmt.Transactions[1].Type != "credit" {
			t.Errorf("second type = %q, want credit", stmt.Transactions[1].Type)
		}
	})
}

func TestChainTextExtractor(t *testing.T) {
	ctx := context.Background()
	unavailable := &mockTextExtractor{ExtractTextFunc: func(ctx context.Context, data []byte) (string, error) {
		return "", ErrTextExtractorUnavailable
	}}
	broken := &mockTextExtractor{ExtractTextFunc: func(ctx context.Context, data []byte) (string, error) {
		return "", errors.New("boom")
	}}
	short := &mockTextExtractor{ExtractTextFunc: func(ctx context.Context, data []byte) (string, error) {
		return "tiny", nil
	}}
	full := &mockTextExtractor{ExtractTextFunc: func(ctx context.Context, data []byte) (string, error) {
		return walletPDFText, nil
	}}

	t.Run("all unavailable", func(t *testing.T) {
		_, err := NewChainTextExtractor(unavailable, UnavailableTextExtractor{}).ExtractText(ctx, nil)
		if !errors.Is(err, ErrTextExtractorUnavailable) {
			t.Errorf("err = %v, want ErrTextExtractorUnavailable", err)
		}
	})

	t.Run("partial failure is not unavailable", func(t *testing.T) {
		_, err := NewChainTextExtractor(unavailable, broken).ExtractText(ctx, nil)
		if err == nil || errors.Is(err, ErrTextExtractorUnavailable) {
			t.Errorf("err = %v, want plain failure", err)
		}
	})

	t.Run("skips short text", func(t *testing.T) {
		got, err := NewChainTextExtractor(short, full).ExtractText(ctx, nil)
		if err != nil || got != walletPDFText {
			t.Errorf("got %q, %v", got, err)
		}
	})

	t.Run("returns best short text", func(t *testing.T) {
		got, err := NewChainTextExtractor(broken, short).ExtractText(ctx, nil)
		if err != nil || got != "tiny" {
			t.Errorf("got %q, %v", got, err)
		}
	})
}

func TestNewTextExtractor(t *testing.T) {
	for _, mode := range []string{"", "auto", "library", "pdftotext", "none", "NONE"} {
		if _, err := NewTextExtractor(mode); err != nil {
			t.Errorf("NewTextExtractor(%q) error: %v", mode, err)
		}
	}
	if _, err := NewTextExtractor("ocr"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestLibraryTextExtractor_Garbage(t *testing.T) {
	_, err := (&LibraryTextExtractor{}).ExtractText(context.Background(), []byte("%PDF-1.4 not really a pdf"))
	if err == nil {
		t.Error("expected error for truncated pdf")
	}
}

func TestTemplate(t *testing.T) {
	if got := Template("").BankType; got != domain.BankWallet {
		t.Errorf("default template = %q, want wallet", got)
	}
	tpl := Template(domain.BankTraditional)
	if tpl.BankType != domain.BankTraditional || len(tpl.Transactions) == 0 || tpl.AccountInfo == nil {
		t.Errorf("traditional template = %+v", tpl)
	}
}
