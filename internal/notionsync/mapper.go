package notionsync

import (
	"github.com/jomei/notionapi"

	"github.com/dvloznov/statement-ingest/internal/categorize"
	"github.com/dvloznov/statement-ingest/internal/domain"
)

// Property names of the Notion transactions database.
const (
	PropDescription = "Description"
	PropReference   = "Reference"
	PropDate        = "Date"
	PropAmount      = "Amount"
	PropType        = "Type"
	PropCategory    = "Category"
	PropChannel     = "Channel"
)

// TransactionToNotionProperties converts a stored transaction to Notion page
// properties. Debits are written as negative amounts so a Notion sum gives
// the net flow.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	date := notionapi.Date(tx.Date)
	amount := tx.Amount.InexactFloat64()
	if tx.Type == domain.TxDebit {
		amount = -amount
	}

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{richText(tx.Description)},
		},
		PropReference: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(tx.Reference)},
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		PropAmount: notionapi.NumberProperty{
			Number: amount,
		},
		PropType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Type)},
		},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: categoryName(tx)},
		},
	}

	// Notion rejects empty select options
	if tx.Channel != "" {
		props[PropChannel] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: tx.Channel},
		}
	}

	return props
}

func categoryName(tx domain.Transaction) string {
	if tx.Category == "" {
		return categorize.Other
	}
	return tx.Category
}

func richText(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

// pageReference reads the Reference rich text of a queried page.
func pageReference(page notionapi.Page) string {
	prop, ok := page.Properties[PropReference].(*notionapi.RichTextProperty)
	if !ok || len(prop.RichText) == 0 {
		return ""
	}
	var s string
	for _, rt := range prop.RichText {
		if rt.PlainText != "" {
			s += rt.PlainText
		} else if rt.Text != nil {
			s += rt.Text.Content
		}
	}
	return s
}

// pageCategory reads the Category select of a queried page.
func pageCategory(page notionapi.Page) string {
	if prop, ok := page.Properties[PropCategory].(*notionapi.SelectProperty); ok {
		return prop.Select.Name
	}
	return ""
}
