// Package google mirrors ledger records into a Google Sheets spreadsheet
// using service account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/Vynetoob/Financeiro/internal/core"
	ports "github.com/Vynetoob/Financeiro/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
}

// Ensure interface conformance
var _ ports.LedgerWriter = (*Client)(nil)

// New creates a Sheets client. Credentials come from the inline JSON when
// set, otherwise from the credentials file.
func New(ctx context.Context, spreadsheetID, sheetName, serviceAccountFile, serviceAccountJSON string) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := newSheetsService(ctx, serviceAccountFile, serviceAccountJSON)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, serviceAccountFile, serviceAccountJSON string) (*gsheet.Service, error) {
	var credentialsJSON []byte
	var err error

	switch {
	case strings.TrimSpace(serviceAccountJSON) != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case strings.TrimSpace(serviceAccountFile) != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return service, nil
}

// Append writes one ledger record as a row and returns the updated range as
// the row reference.
func (c *Client) Append(ctx context.Context, t core.Transaction) (string, error) {
	row := []interface{}{
		t.ID,
		t.Date.Key(),
		t.Description,
		t.Amount.String(),
		string(t.Kind),
		string(t.PaymentMethod),
		t.CategoryID,
		t.OwnerID,
		string(t.Scope),
		t.Paid,
	}

	vr := &gsheet.ValueRange{Values: [][]interface{}{row}}
	rangeRef := fmt.Sprintf("%s!A:J", c.sheetName)

	resp, err := c.svc.Spreadsheets.Values.
		Append(c.spreadsheetID, rangeRef, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("append row: %w", err)
	}

	ref := ""
	if resp.Updates != nil {
		ref = resp.Updates.UpdatedRange
	}

	slog.InfoContext(ctx, "Ledger record appended to sheet",
		"id", t.ID,
		"range", ref)

	return ref, nil
}
