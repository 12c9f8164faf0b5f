package notionsync

import (
	"context"

	"github.com/jomei/notionapi"
)

// NotionService is the transactions database in Notion. This interface
// enables mocking and testing of Notion operations.
type NotionService interface {
	// CreatePage creates a new page in the database with the given properties.
	CreatePage(ctx context.Context, properties notionapi.Properties) (*notionapi.Page, error)

	// UpdatePage updates an existing page with the given properties.
	UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error)

	// QueryPages returns one page of database results starting at cursor.
	QueryPages(ctx context.Context, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error)

	// ArchivePage moves a page to the trash.
	ArchivePage(ctx context.Context, pageID string) error
}
