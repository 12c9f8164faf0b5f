package notionsync

import (
	"time"

	"github.com/dvloznov/tax-tracker/internal/domain"
	"github.com/jomei/notionapi"
)

// Property names of the Notion transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropSource        = "Source"
	PropHasReceipt    = "Has Receipt"
	PropNotes         = "Notes"
	PropTags          = "Tags"
	PropVersion       = "Version"
)

// TransactionToNotionProperties converts a transaction to Notion properties.
func TransactionToNotionProperties(tx domain.Transaction) notionapi.Properties {
	date := notionapi.Date(time.Date(tx.Date.Year, tx.Date.Month, tx.Date.Day, 0, 0, 0, 0, time.UTC))

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: richText(tx.Description),
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: richText(tx.ID),
		},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &date},
		},
		PropAmount: notionapi.NumberProperty{
			Number: tx.Amount.InexactFloat64(),
		},
		PropType: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Type)},
		},
		PropCategory: notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Category)},
		},
		PropHasReceipt: notionapi.CheckboxProperty{
			Checkbox: tx.HasReceipt,
		},
		PropVersion: notionapi.RichTextProperty{
			RichText: richText(Version(tx)),
		},
	}

	if tx.Source != "" {
		props[PropSource] = notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(tx.Source)},
		}
	}

	if tx.Notes != "" {
		props[PropNotes] = notionapi.RichTextProperty{
			RichText: richText(tx.Notes),
		}
	}

	if len(tx.Tags) > 0 {
		opts := make([]notionapi.Option, 0, len(tx.Tags))
		for _, tag := range tx.Tags {
			opts = append(opts, notionapi.Option{Name: tag})
		}
		props[PropTags] = notionapi.MultiSelectProperty{MultiSelect: opts}
	}

	return props
}

// Version identifies the revision of tx mirrored into a page. A page whose
// version matches needs no update.
func Version(tx domain.Transaction) string {
	return tx.UpdatedAt.UTC().Format(time.RFC3339Nano)
}

func richText(content string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: content},
		},
	}
}

// extractTransactionID returns the transaction ID stored on page, if any.
func extractTransactionID(page notionapi.Page) string {
	return plainText(page, PropTransactionID)
}

func extractVersion(page notionapi.Page) string {
	return plainText(page, PropVersion)
}

func plainText(page notionapi.Page, name string) string {
	prop, ok := page.Properties[name]
	if !ok {
		return ""
	}
	rt, ok := prop.(*notionapi.RichTextProperty)
	if !ok || len(rt.RichText) == 0 {
		return ""
	}
	if rt.RichText[0].PlainText != "" {
		return rt.RichText[0].PlainText
	}
	if rt.RichText[0].Text != nil {
		return rt.RichText[0].Text.Content
	}
	return ""
}
