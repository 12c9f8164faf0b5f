package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
)

// queryPageSize is the largest page size the Notion API accepts.
const queryPageSize = 100

// NotionClient is the concrete implementation of NotionService using the
// Notion SDK. It is bound to a single database.
type NotionClient struct {
	client     *notionapi.Client
	databaseID notionapi.DatabaseID
}

// NewNotionClient creates a client for databaseID with the provided API token.
func NewNotionClient(token, databaseID string) *NotionClient {
	return &NotionClient{
		client:     notionapi.NewClient(notionapi.Token(token)),
		databaseID: notionapi.DatabaseID(databaseID),
	}
}

// CreatePage creates a new page in the database.
func (n *NotionClient) CreatePage(ctx context.Context, properties notionapi.Properties) (*notionapi.Page, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: n.databaseID,
		},
		Properties: properties,
	}

	page, err := n.client.Page.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("CreatePage: %w", err)
	}
	return page, nil
}

// UpdatePage replaces the given properties on an existing page.
func (n *NotionClient) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	page, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: properties,
	})
	if err != nil {
		return nil, fmt.Errorf("UpdatePage %s: %w", pageID, err)
	}
	return page, nil
}

// QueryPages returns up to queryPageSize pages, oldest transaction first.
func (n *NotionClient) QueryPages(ctx context.Context, cursor notionapi.Cursor) (*notionapi.DatabaseQueryResponse, error) {
	req := &notionapi.DatabaseQueryRequest{
		PageSize: queryPageSize,
		Sorts: []notionapi.SortObject{
			{Property: PropDate, Direction: notionapi.SortOrderASC},
		},
	}
	if cursor != "" {
		req.StartCursor = cursor
	}

	resp, err := n.client.Database.Query(ctx, n.databaseID, req)
	if err != nil {
		return nil, fmt.Errorf("QueryPages: %w", err)
	}
	return resp, nil
}

// ArchivePage archives a Notion page by setting its archived property to true.
func (n *NotionClient) ArchivePage(ctx context.Context, pageID string) error {
	_, err := n.client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Archived: true,
	})
	if err != nil {
		return fmt.Errorf("ArchivePage %s: %w", pageID, err)
	}
	return nil
}
