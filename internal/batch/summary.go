package batch

import (
	"context"
	"time"

	"github.com/dvloznov/statement-sync/internal/config"
	"github.com/dvloznov/statement-sync/internal/statement"
)

// AccountSummary is the parse status of one account, for display.
type AccountSummary struct {
	AccountKey        string    `json:"account_key"`
	DisplayName       string    `json:"display_name"`
	Currency          string    `json:"currency"`
	TotalTransactions int       `json:"total_transactions"`
	FilesTracked      int       `json:"files_tracked"`
	FilesParsed       int       `json:"files_parsed"`
	FilesFailed       int       `json:"files_failed"`
	LastUpdated       time.Time `json:"last_updated"`
}

// Summary reads the persisted stores and reports one account's status
// without modifying anything.
func (o *Orchestrator) Summary(ctx context.Context, account config.Account) (AccountSummary, error) {
	db, err := o.Store.LoadDatabase(ctx, account)
	if err != nil {
		return AccountSummary{}, err
	}
	tracking, err := o.Store.LoadTracking(ctx)
	if err != nil {
		return AccountSummary{}, err
	}

	summary := AccountSummary{
		AccountKey:        account.Key,
		DisplayName:       account.DisplayName,
		Currency:          account.Currency,
		TotalTransactions: len(db.Transactions),
		LastUpdated:       db.Metadata.LastUpdated,
	}
	for _, record := range tracking[account.Key] {
		summary.FilesTracked++
		switch record.ParseStatus {
		case statement.ParseStatusSuccess:
			summary.FilesParsed++
		case statement.ParseStatusFailed:
			summary.FilesFailed++
		}
	}
	return summary, nil
}
