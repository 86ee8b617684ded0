package advice

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-ingest/internal/domain"
	"github.com/dvloznov/statement-ingest/internal/jobs"
	"github.com/dvloznov/statement-ingest/internal/store"
)

// TransactionLister is the read side of the transaction store.
type TransactionLister interface {
	ListTransactions(ctx context.Context, userID string, f store.TransactionFilter) ([]domain.Transaction, error)
}

// NewJobHandler returns the queue handler for advice jobs. The generated
// text is written back onto the job; the queue persists it.
func NewJobHandler(lister TransactionLister, provider Provider, log zerolog.Logger) jobs.JobHandler {
	return func(ctx context.Context, job jobs.Job) error {
		adviceJob, ok := job.(*jobs.GenerateAdviceJob)
		if !ok {
			return fmt.Errorf("advice job handler: unexpected job type %s", job.GetType())
		}

		txs, err := lister.ListTransactions(ctx, adviceJob.UserID, store.TransactionFilter{
			From: adviceJob.From,
			To:   adviceJob.To,
		})
		if err != nil {
			return fmt.Errorf("advice job handler: listing transactions: %w", err)
		}

		text, err := provider.Generate(ctx, txs)
		if err != nil {
			return fmt.Errorf("advice job handler: generating advice: %w", err)
		}

		adviceJob.Advice = text
		log.Debug().
			Str("job_id", adviceJob.JobID).
			Str("user_id", adviceJob.UserID).
			Int("transactions", len(txs)).
			Msg("Advice generated")
		return nil
	}
}
