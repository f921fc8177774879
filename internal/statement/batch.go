package statement

// BatchResult summarizes one account's processing run.
type BatchResult struct {
	Success           bool     `json:"success"`
	Message           string   `json:"message"`
	FilesChecked      int      `json:"files_checked"`
	FilesProcessed    int      `json:"files_processed"`
	FilesSkipped      int      `json:"files_skipped"`
	TransactionsAdded int      `json:"transactions_added"`
	OrphansRemoved    int      `json:"orphaned_transactions_removed"`
	TotalTransactions int      `json:"total_transactions"`
	Errors            []string `json:"errors,omitempty"`
	AccountKey        string   `json:"account_key"`
	AccountType       string   `json:"account_type"`
}

// Progress is a point-in-time snapshot of a running batch, delivered to the
// caller through a ProgressSink. The orchestrator owns no session state; the
// sink decides what to do with each snapshot.
type Progress struct {
	Status            string   `json:"status"`
	Details           string   `json:"details"`
	CurrentFile       string   `json:"current_file,omitempty"`
	FilesChecked      int      `json:"files_checked"`
	FilesProcessed    int      `json:"files_processed"`
	FilesSkipped      int      `json:"files_skipped"`
	TotalFiles        int      `json:"total_files"`
	TransactionsAdded int      `json:"transactions_added"`
	OrphansRemoved    int      `json:"orphaned_transactions_removed"`
	Percent           int      `json:"progress_percentage"`
	Errors            []string `json:"errors,omitempty"`
}

// ProgressSink receives progress snapshots. A nil sink is valid and means
// the caller does not care.
type ProgressSink func(Progress)

// Emit sends a snapshot if the sink is non-nil.
func (s ProgressSink) Emit(p Progress) {
	if s != nil {
		s(p)
	}
}
